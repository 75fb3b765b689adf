package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultLeadDayWindow = 60
	DefaultTimezone      = "UTC"
	// TriggerMinuteEvery fires a trigger handle on every minute of its hour.
	TriggerMinuteEvery = "*"
)

// Dimensions flags which rule kinds contribute to the rate.
type Dimensions struct {
	LeadDays  bool `json:"lead_days" gorm:"column:is_lead_days_based;not null"`
	Weekday   bool `json:"weekday" gorm:"column:is_weekday_based;not null"`
	Month     bool `json:"month" gorm:"column:is_month_based;not null"`
	Season    bool `json:"season" gorm:"column:is_season_based;not null"`
	Occupancy bool `json:"occupancy" gorm:"column:is_occupancy_based;not null"`
	Time      bool `json:"time" gorm:"column:is_time_based;not null"`
	RatePlan  bool `json:"rate_plan" gorm:"column:is_rate_plan_based;not null"`
}

// Setting is the dynamic pricing configuration of one property.
type Setting struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	PropertyID      snowflake.ID `json:"property_id" gorm:"column:property_id;not null;uniqueIndex"`
	Enabled         bool         `json:"enabled" gorm:"not null"`
	Dimensions      Dimensions   `json:"dimensions" gorm:"embedded"`
	LeadDayWindow   int          `json:"lead_day_window" gorm:"column:lead_day_window;not null"`
	DefaultBaseRate int64        `json:"default_base_rate" gorm:"column:default_base_rate;not null"`
	Timezone        string       `json:"timezone" gorm:"type:text;not null"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (Setting) TableName() string { return "dynamic_pricing_settings" }

type LeadDaysRule struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID snowflake.ID `json:"setting_id" gorm:"not null;uniqueIndex:ux_lead_days_rules_setting_key"`
	LeadDays  int          `json:"lead_days" gorm:"not null;uniqueIndex:ux_lead_days_rules_setting_key"`
	Factor    Factor       `json:"factor" gorm:"embedded"`
}

func (LeadDaysRule) TableName() string { return "lead_days_rules" }

type WeekdayRule struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID snowflake.ID `json:"setting_id" gorm:"not null;uniqueIndex:ux_weekday_rules_setting_key"`
	Weekday   int          `json:"weekday" gorm:"not null;uniqueIndex:ux_weekday_rules_setting_key"`
	Factor    Factor       `json:"factor" gorm:"embedded"`
}

func (WeekdayRule) TableName() string { return "weekday_rules" }

type MonthRule struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID snowflake.ID `json:"setting_id" gorm:"not null;uniqueIndex:ux_month_rules_setting_key"`
	Month     int          `json:"month" gorm:"not null;uniqueIndex:ux_month_rules_setting_key"`
	Factor    Factor       `json:"factor" gorm:"embedded"`
}

func (MonthRule) TableName() string { return "month_rules" }

// SeasonRule covers an inclusive month/day window. A window whose start is
// after its end wraps over the new year.
type SeasonRule struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID  snowflake.ID `json:"setting_id" gorm:"not null;uniqueIndex:ux_season_rules_setting_name"`
	Name       string       `json:"name" gorm:"type:text;not null;uniqueIndex:ux_season_rules_setting_name"`
	StartMonth int          `json:"start_month" gorm:"not null"`
	StartDay   int          `json:"start_day" gorm:"not null"`
	EndMonth   int          `json:"end_month" gorm:"not null"`
	EndDay     int          `json:"end_day" gorm:"not null"`
	Factor     Factor       `json:"factor" gorm:"embedded"`
}

func (SeasonRule) TableName() string { return "season_rules" }

// Contains reports whether the calendar date falls inside the window.
func (r SeasonRule) Contains(date time.Time) bool {
	md := MonthDay(int(date.Month()), date.Day())
	start := MonthDay(r.StartMonth, r.StartDay)
	end := MonthDay(r.EndMonth, r.EndDay)
	if start <= end {
		return start <= md && md <= end
	}
	return md >= start || md <= end
}

type OccupancyRule struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID    snowflake.ID `json:"setting_id" gorm:"not null;uniqueIndex:ux_occupancy_rules_setting_min"`
	MinOccupancy int          `json:"min_occupancy" gorm:"not null;uniqueIndex:ux_occupancy_rules_setting_min"`
	Factor       Factor       `json:"factor" gorm:"embedded"`
}

func (OccupancyRule) TableName() string { return "occupancy_rules" }

// TimeRule applies once the property-local clock passes Hour on the day that is
// DayAhead days before the stay date.
type TimeRule struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID    snowflake.ID `json:"setting_id" gorm:"not null;index"`
	Hour         int          `json:"hour" gorm:"not null"`
	DayAhead     int          `json:"day_ahead" gorm:"not null"`
	MinOccupancy int          `json:"min_occupancy" gorm:"not null"`
	MaxOccupancy *int         `json:"max_occupancy,omitempty"`
	IsActive     bool         `json:"is_active" gorm:"not null"`
	Factor       Factor       `json:"factor" gorm:"embedded"`
}

func (TimeRule) TableName() string { return "time_rules" }

// TriggerHandle mirrors a TimeRule for the periodic scheduler.
type TriggerHandle struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	TimeRuleID  snowflake.ID `json:"time_rule_id" gorm:"not null;uniqueIndex"`
	SettingID   snowflake.ID `json:"setting_id" gorm:"not null;index"`
	Hour        int          `json:"hour" gorm:"not null"`
	Minute      string       `json:"minute" gorm:"type:text;not null"`
	Timezone    string       `json:"timezone" gorm:"type:text;not null"`
	DayAhead    int          `json:"day_ahead" gorm:"not null"`
	Enabled     bool         `json:"enabled" gorm:"not null"`
	LastFiredOn *time.Time   `json:"last_fired_on,omitempty" gorm:"type:date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (TriggerHandle) TableName() string { return "time_rule_triggers" }

// RatePlanFactor is a percentage-only adjustment for one rate plan.
type RatePlanFactor struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID  snowflake.ID `json:"setting_id" gorm:"not null;index"`
	RatePlanID snowflake.ID `json:"rate_plan_id" gorm:"not null;uniqueIndex"`
	Percentage int          `json:"percentage" gorm:"not null"`
}

func (RatePlanFactor) TableName() string { return "rate_plan_factors" }

func (r RatePlanFactor) Factor() Factor {
	return Percentage(r.Percentage)
}

// IntervalBaseRate overrides the default base rate on a closed date range.
type IntervalBaseRate struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	SettingID snowflake.ID `json:"setting_id" gorm:"not null;index"`
	StartDate time.Time    `json:"start_date" gorm:"type:date;not null"`
	EndDate   time.Time    `json:"end_date" gorm:"type:date;not null"`
	BaseRate  int64        `json:"base_rate" gorm:"not null"`
}

func (IntervalBaseRate) TableName() string { return "interval_base_rates" }

func (r IntervalBaseRate) Covers(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(r.StartDate)) && !d.After(DateOf(r.EndDate))
}

// Tables lists every model owned by the pricing domain.
func Tables() []any {
	return []any{
		&Setting{},
		&LeadDaysRule{},
		&WeekdayRule{},
		&MonthRule{},
		&SeasonRule{},
		&OccupancyRule{},
		&TimeRule{},
		&TriggerHandle{},
		&RatePlanFactor{},
		&IntervalBaseRate{},
	}
}
