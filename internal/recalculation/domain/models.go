package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Property, RoomType and RatePlan are the inventory rows the engine reads.
// They are owned by the property management side.
type Property struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	Name       string       `json:"name" gorm:"type:text;not null"`
	ExternalID *string      `json:"external_id,omitempty" gorm:"type:text"`
}

func (Property) TableName() string { return "properties" }

type RoomType struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PropertyID snowflake.ID `json:"property_id" gorm:"not null;index"`
	Name       string       `json:"name" gorm:"type:text;not null"`
	ExternalID *string      `json:"external_id,omitempty" gorm:"type:text"`
}

func (RoomType) TableName() string { return "room_types" }

type RatePlan struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	RoomTypeID snowflake.ID `json:"room_type_id" gorm:"not null;index"`
	Name       string       `json:"name" gorm:"type:text;not null"`
	ExternalID *string      `json:"external_id,omitempty" gorm:"type:text"`
}

func (RatePlan) TableName() string { return "rate_plans" }

// Restriction is the stored nightly rate of a rate plan.
type Restriction struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	RatePlanID snowflake.ID `json:"rate_plan_id" gorm:"not null;uniqueIndex:ux_rate_plan_restrictions_plan_date"`
	Date       time.Time    `json:"date" gorm:"type:date;not null;uniqueIndex:ux_rate_plan_restrictions_plan_date"`
	Rate       int64        `json:"rate" gorm:"not null"`
	BaseRate   int64        `json:"base_rate" gorm:"not null"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (Restriction) TableName() string { return "rate_plan_restrictions" }

// Occupancy is the booked room count of a room type on a date.
type Occupancy struct {
	RoomTypeID snowflake.ID `json:"room_type_id" gorm:"primaryKey"`
	Date       time.Time    `json:"date" gorm:"type:date;primaryKey"`
	Booked     int          `json:"booked" gorm:"not null"`
}

func (Occupancy) TableName() string { return "room_type_occupancy" }

// Tables lists the inventory models in dependency order.
func Tables() []any {
	return []any{
		&Property{},
		&RoomType{},
		&RatePlan{},
		&Restriction{},
		&Occupancy{},
	}
}
