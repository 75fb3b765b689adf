package domain

import "errors"

var (
	ErrInvalidFactor    = errors.New("invalid_factor")
	ErrRuleNotEnabled   = errors.New("rule_not_enabled")
	ErrInvalidInput     = errors.New("invalid_input")
	ErrUnsyncedRatePlan = errors.New("unsynced_rate_plan")

	ErrInvalidWeekday        = errors.New("invalid_weekday")
	ErrInvalidMonth          = errors.New("invalid_month")
	ErrInvalidSeasonWindow   = errors.New("invalid_season_window")
	ErrInvalidSeasonName     = errors.New("invalid_season_name")
	ErrInvalidHour           = errors.New("invalid_hour")
	ErrInvalidDayAhead       = errors.New("invalid_day_ahead")
	ErrInvalidOccupancyRange = errors.New("invalid_occupancy_range")
	ErrInvalidLeadDays       = errors.New("invalid_lead_days")
	ErrInvalidBaseRate       = errors.New("invalid_base_rate")
	ErrInvalidTimezone       = errors.New("invalid_timezone")
	ErrInvalidDateRange      = errors.New("invalid_date_range")
	ErrOverlappingInterval   = errors.New("overlapping_interval")
	ErrDuplicateRule         = errors.New("duplicate_rule")
	ErrSettingNotFound       = errors.New("setting_not_found")
	ErrSettingExists         = errors.New("setting_already_exists")
	ErrRuleNotFound          = errors.New("rule_not_found")
)
