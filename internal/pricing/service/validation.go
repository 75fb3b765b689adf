package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/xhoantran/HotelMS-server/internal/pricing/domain"
)

func validateTimezone(tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidTimezone, tz)
	}
	return nil
}

func validateSetting(s domain.Setting) error {
	if s.LeadDayWindow < 0 {
		return fmt.Errorf("%w: lead day window must not be negative", domain.ErrInvalidLeadDays)
	}
	if s.DefaultBaseRate < 0 {
		return domain.ErrInvalidBaseRate
	}
	if s.Enabled && s.DefaultBaseRate <= 0 {
		return fmt.Errorf("%w: an enabled setting needs a positive default base rate", domain.ErrInvalidBaseRate)
	}
	if s.Timezone == "" {
		return fmt.Errorf("%w: timezone is required", domain.ErrInvalidTimezone)
	}
	return validateTimezone(s.Timezone)
}

func validateSeason(req domain.SeasonRuleRequest) (domain.SeasonRuleRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, domain.ErrInvalidSeasonName
	}
	if !domain.ValidMonthDay(req.StartMonth, req.StartDay) || !domain.ValidMonthDay(req.EndMonth, req.EndDay) {
		return req, domain.ErrInvalidSeasonWindow
	}
	return req, req.Factor.Validate()
}

func validateOccupancy(req domain.OccupancyRuleRequest) error {
	if req.MinOccupancy < 0 {
		return domain.ErrInvalidOccupancyRange
	}
	return req.Factor.Validate()
}

func validateTimeRule(req domain.TimeRuleRequest) error {
	if req.Hour < 0 || req.Hour > 23 {
		return domain.ErrInvalidHour
	}
	if req.DayAhead != 0 && req.DayAhead != 1 {
		return domain.ErrInvalidDayAhead
	}
	if req.MinOccupancy < 0 {
		return domain.ErrInvalidOccupancyRange
	}
	if req.MaxOccupancy != nil && *req.MaxOccupancy < req.MinOccupancy {
		return fmt.Errorf("%w: max below min", domain.ErrInvalidOccupancyRange)
	}
	return req.Factor.Validate()
}

func validateInterval(req domain.IntervalBaseRateRequest) (domain.IntervalBaseRateRequest, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return req, domain.ErrInvalidDateRange
	}
	req.StartDate = domain.DateOf(req.StartDate)
	req.EndDate = domain.DateOf(req.EndDate)
	if req.EndDate.Before(req.StartDate) {
		return req, domain.ErrInvalidDateRange
	}
	if req.BaseRate <= 0 {
		return req, domain.ErrInvalidBaseRate
	}
	return req, nil
}
