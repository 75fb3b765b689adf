package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// RuleRepository loads the persisted configuration of a setting as one snapshot.
type RuleRepository interface {
	LoadSnapshot(ctx context.Context, settingID snowflake.ID) (*Snapshot, error)
}

// SnapshotReader serves snapshots, typically through a cache.
type SnapshotReader interface {
	Get(ctx context.Context, settingID snowflake.ID) (*Snapshot, error)
}

// Invalidator drops the cached snapshot of a setting after a rule write.
type Invalidator interface {
	Invalidate(ctx context.Context, settingID snowflake.ID) error
}
