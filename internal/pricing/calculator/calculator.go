// Package calculator resolves rule factors and composes nightly rates from a
// pricing snapshot. Every function is pure: the current instant is an argument.
package calculator

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/pricing/domain"
)

type Calculator struct {
	snap *domain.Snapshot
}

// New binds a calculator to a sealed snapshot.
func New(snap *domain.Snapshot) *Calculator {
	return &Calculator{snap: snap}
}

// LeadDays counts days from today in the property zone to date.
func (c *Calculator) LeadDays(date, now time.Time) int {
	return domain.DaysBetween(domain.Today(now, c.snap.Location()), date)
}

func (c *Calculator) LeadDaysFactor(date, now time.Time) (domain.Factor, error) {
	if !c.snap.Setting.Dimensions.LeadDays {
		return domain.Neutral, nil
	}
	lead := c.LeadDays(date, now)
	if lead < 0 {
		return domain.Neutral, fmt.Errorf("%w: date %s is in the past", domain.ErrInvalidInput, date.Format(time.DateOnly))
	}
	if lead > c.snap.Setting.LeadDayWindow {
		lead = c.snap.Setting.LeadDayWindow
	}

	rules := c.snap.LeadDays
	if len(rules) == 0 {
		return domain.Neutral, nil
	}
	for _, r := range rules {
		if r.LeadDays == lead {
			return r.Factor, nil
		}
	}
	if last := rules[len(rules)-1]; lead > last.LeadDays {
		return last.Factor, nil
	}
	return domain.Neutral, nil
}

func (c *Calculator) WeekdayFactor(date time.Time) domain.Factor {
	if !c.snap.Setting.Dimensions.Weekday {
		return domain.Neutral
	}
	f, ok := c.snap.WeekdayFactor(domain.ISOWeekday(date))
	if !ok {
		return domain.Neutral
	}
	return f
}

func (c *Calculator) MonthFactor(date time.Time) domain.Factor {
	if !c.snap.Setting.Dimensions.Month {
		return domain.Neutral
	}
	f, ok := c.snap.MonthFactor(int(date.Month()))
	if !ok {
		return domain.Neutral
	}
	return f
}

// SeasonFactor returns the first season in storage order that contains date.
func (c *Calculator) SeasonFactor(date time.Time) domain.Factor {
	if !c.snap.Setting.Dimensions.Season {
		return domain.Neutral
	}
	for _, r := range c.snap.Seasons {
		if r.Contains(date) {
			return r.Factor
		}
	}
	return domain.Neutral
}

// OccupancyFactor picks the greatest threshold not above occupancy. Rules are
// ordered by min_occupancy descending.
func (c *Calculator) OccupancyFactor(occupancy int) domain.Factor {
	if !c.snap.Setting.Dimensions.Occupancy {
		return domain.Neutral
	}
	for _, r := range c.snap.Occupancy {
		if r.MinOccupancy <= occupancy {
			return r.Factor
		}
	}
	return domain.Neutral
}

// TimeFactor returns the first time rule that has fired for date by now.
func (c *Calculator) TimeFactor(date time.Time, occupancy int, now time.Time) (domain.Factor, error) {
	if !c.snap.Setting.Dimensions.Time {
		return domain.Neutral, nil
	}
	lead := c.LeadDays(date, now)
	if lead < 0 {
		return domain.Neutral, fmt.Errorf("%w: date %s is in the past", domain.ErrInvalidInput, date.Format(time.DateOnly))
	}
	if lead > c.snap.MaxDayAhead() {
		return domain.Neutral, nil
	}

	loc := c.snap.Location()
	stay := domain.DateOf(date)
	for _, r := range c.snap.TimeRules {
		if !r.IsActive {
			continue
		}
		if now.Before(TriggerInstant(stay, r.DayAhead, r.Hour, loc)) {
			continue
		}
		if occupancy < r.MinOccupancy {
			continue
		}
		if r.MaxOccupancy != nil && occupancy > *r.MaxOccupancy {
			continue
		}
		return r.Factor, nil
	}
	return domain.Neutral, nil
}

// TriggerInstant is hour:00 in loc on the day that is dayAhead days before stay.
func TriggerInstant(stay time.Time, dayAhead, hour int, loc *time.Location) time.Time {
	d := domain.DateOf(stay).AddDate(0, 0, -dayAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
}

func (c *Calculator) RatePlanFactor(ratePlanID snowflake.ID) (domain.Factor, error) {
	if !c.snap.Setting.Dimensions.RatePlan {
		return domain.Neutral, nil
	}
	p, ok := c.snap.RatePlanPercentage(ratePlanID)
	if !ok {
		return domain.Neutral, fmt.Errorf("%w: rate plan %s has no factor", domain.ErrInvalidInput, ratePlanID)
	}
	return domain.Percentage(p), nil
}

// BaseRate is the first interval rate covering date, else the default base rate.
func (c *Calculator) BaseRate(date time.Time) int64 {
	for _, iv := range c.snap.Intervals {
		if iv.Covers(date) {
			return iv.BaseRate
		}
	}
	return c.snap.Setting.DefaultBaseRate
}

func (c *Calculator) RatePlanBaseRate(ratePlanID snowflake.ID, date time.Time) (int64, error) {
	rp, err := c.RatePlanFactor(ratePlanID)
	if err != nil {
		return 0, err
	}
	return Compose(c.BaseRate(date), rp), nil
}

// RestrictionBaseRate composes the rate plan, lead days, weekday, month and
// season factors over the base rate of date.
func (c *Calculator) RestrictionBaseRate(ratePlanID snowflake.ID, date, now time.Time) (int64, error) {
	rp, err := c.RatePlanFactor(ratePlanID)
	if err != nil {
		return 0, err
	}
	lead, err := c.LeadDaysFactor(date, now)
	if err != nil {
		return 0, err
	}
	return Compose(
		c.BaseRate(date),
		rp,
		lead,
		c.WeekdayFactor(date),
		c.MonthFactor(date),
		c.SeasonFactor(date),
	), nil
}

// RestrictionRate layers the occupancy and time factors over a restriction base rate.
func (c *Calculator) RestrictionRate(date time.Time, baseRate int64, occupancy int, now time.Time) (int64, error) {
	if !c.snap.Setting.Enabled {
		return 0, domain.ErrRuleNotEnabled
	}
	if baseRate <= 0 {
		return 0, fmt.Errorf("%w: base rate must be positive", domain.ErrInvalidInput)
	}
	if occupancy < 0 {
		return 0, fmt.Errorf("%w: occupancy must not be negative", domain.ErrInvalidInput)
	}
	tf, err := c.TimeFactor(date, occupancy, now)
	if err != nil {
		return 0, err
	}
	return Compose(baseRate, c.OccupancyFactor(occupancy), tf), nil
}
