package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service administers pricing settings and rules. Every successful write
// invalidates the cached snapshot of the affected setting.
type Service interface {
	Provision(ctx context.Context, req ProvisionRequest) (*Setting, error)
	GetSetting(ctx context.Context, settingID snowflake.ID) (*Setting, error)
	GetSettingByProperty(ctx context.Context, propertyID snowflake.ID) (*Setting, error)
	UpdateSetting(ctx context.Context, settingID snowflake.ID, req UpdateSettingRequest) (*Setting, error)

	SetLeadDaysFactor(ctx context.Context, settingID snowflake.ID, leadDays int, factor Factor) (*LeadDaysRule, error)
	SetWeekdayFactor(ctx context.Context, settingID snowflake.ID, weekday int, factor Factor) (*WeekdayRule, error)
	SetMonthFactor(ctx context.Context, settingID snowflake.ID, month int, factor Factor) (*MonthRule, error)

	CreateSeasonRule(ctx context.Context, settingID snowflake.ID, req SeasonRuleRequest) (*SeasonRule, error)
	UpdateSeasonRule(ctx context.Context, settingID, ruleID snowflake.ID, req SeasonRuleRequest) (*SeasonRule, error)
	DeleteSeasonRule(ctx context.Context, settingID, ruleID snowflake.ID) error

	CreateOccupancyRule(ctx context.Context, settingID snowflake.ID, req OccupancyRuleRequest) (*OccupancyRule, error)
	UpdateOccupancyRule(ctx context.Context, settingID, ruleID snowflake.ID, req OccupancyRuleRequest) (*OccupancyRule, error)
	DeleteOccupancyRule(ctx context.Context, settingID, ruleID snowflake.ID) error

	CreateTimeRule(ctx context.Context, settingID snowflake.ID, req TimeRuleRequest) (*TimeRule, error)
	UpdateTimeRule(ctx context.Context, settingID, ruleID snowflake.ID, req TimeRuleRequest) (*TimeRule, error)
	DeleteTimeRule(ctx context.Context, settingID, ruleID snowflake.ID) error
	ListTriggerHandles(ctx context.Context, settingID snowflake.ID) ([]TriggerHandle, error)

	SetRatePlanFactor(ctx context.Context, settingID, ratePlanID snowflake.ID, percentage int) (*RatePlanFactor, error)
	EnsureRatePlanFactor(ctx context.Context, settingID, ratePlanID snowflake.ID) (*RatePlanFactor, error)

	CreateIntervalBaseRate(ctx context.Context, settingID snowflake.ID, req IntervalBaseRateRequest) (*IntervalBaseRate, error)
	UpdateIntervalBaseRate(ctx context.Context, settingID, intervalID snowflake.ID, req IntervalBaseRateRequest) (*IntervalBaseRate, error)
	DeleteIntervalBaseRate(ctx context.Context, settingID, intervalID snowflake.ID) error
}

type ProvisionRequest struct {
	PropertyID      snowflake.ID
	Timezone        string
	DefaultBaseRate int64
	LeadDayWindow   *int
}

// UpdateSettingRequest carries optional changes; nil fields are left untouched.
type UpdateSettingRequest struct {
	Enabled         *bool
	Dimensions      *Dimensions
	LeadDayWindow   *int
	DefaultBaseRate *int64
	Timezone        *string
}

type SeasonRuleRequest struct {
	Name       string
	StartMonth int
	StartDay   int
	EndMonth   int
	EndDay     int
	Factor     Factor
}

type OccupancyRuleRequest struct {
	MinOccupancy int
	Factor       Factor
}

type TimeRuleRequest struct {
	Hour         int
	DayAhead     int
	MinOccupancy int
	MaxOccupancy *int
	IsActive     bool
	Factor       Factor
}

type IntervalBaseRateRequest struct {
	StartDate time.Time
	EndDate   time.Time
	BaseRate  int64
}
