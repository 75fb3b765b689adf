package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Trigger names the event that started a recalculation.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerAll       Trigger = "all"
	TriggerOccupancy Trigger = "occupancy"
	TriggerTime      Trigger = "time"
)

type Request struct {
	SettingID   snowflake.ID
	RoomTypeIDs []snowflake.ID
	From        time.Time
	To          time.Time
	Trigger     Trigger
}

// Report summarizes a persisted recalculation.
type Report struct {
	SettingID snowflake.ID
	From      time.Time
	To        time.Time
	Changes   []Change
	Unsynced  []snowflake.ID
	Published int
	Skipped   bool
}

type Service interface {
	Recalculate(ctx context.Context, req Request) (*Report, error)
	RecalculateAll(ctx context.Context, settingID snowflake.ID) (*Report, error)
	RecalculateDates(ctx context.Context, settingID snowflake.ID, from, to time.Time, trigger Trigger) (*Report, error)
	HandleOccupancyChange(ctx context.Context, settingID snowflake.ID, roomTypeIDs []snowflake.ID, from, to time.Time) (*Report, error)
}
