// Package ratecache keeps pricing snapshots per setting. Entries never expire;
// writers invalidate them explicitly. Every key carries an epoch that
// invalidation bumps, and a loaded snapshot is only stored while the epoch it
// was loaded under is still current.
package ratecache

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
)

var ErrCorruptEntry = errors.New("corrupt_cache_entry")

// Cache is the storage backend behind RuleCache.
type Cache interface {
	// Get returns a sealed snapshot when one is stored.
	Get(ctx context.Context, settingID snowflake.ID) (*pricingdomain.Snapshot, bool, error)
	// Epoch returns the current epoch of the key, zero when never invalidated.
	Epoch(ctx context.Context, settingID snowflake.ID) (int64, error)
	// SetIfEpoch stores snap only when the key is still at epoch.
	SetIfEpoch(ctx context.Context, settingID snowflake.ID, snap *pricingdomain.Snapshot, epoch int64) (bool, error)
	// Invalidate bumps the epoch and removes the snapshot in one step.
	Invalidate(ctx context.Context, settingID snowflake.ID) error
}
