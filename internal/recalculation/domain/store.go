package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Scope selects restrictions of some room types over an inclusive date range.
type Scope struct {
	RoomTypeIDs []snowflake.ID
	From        time.Time
	To          time.Time
}

type OccupancySource interface {
	Load(ctx context.Context, db *gorm.DB, scope Scope) (OccupancyMap, error)
}

type RestrictionStore interface {
	List(ctx context.Context, db *gorm.DB, scope Scope) ([]RestrictionRow, error)
	Apply(ctx context.Context, db *gorm.DB, changes []Change) error
}

type RatePlanDirectory interface {
	// RoomTypes lists the room types of the property a setting prices.
	RoomTypes(ctx context.Context, db *gorm.DB, settingID snowflake.ID) ([]snowflake.ID, error)
	// Synced returns the rate plans of the room types that carry an external id.
	Synced(ctx context.Context, db *gorm.DB, roomTypeIDs []snowflake.ID) (map[snowflake.ID]RatePlanRef, error)
	// PropertyExternalID resolves the channel manager id of the setting's property.
	PropertyExternalID(ctx context.Context, db *gorm.DB, settingID snowflake.ID) (string, error)
}
