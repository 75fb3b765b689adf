package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Snapshot is the complete rule configuration of one setting at a point in time.
// It is never mutated after Seal and may be shared between goroutines.
type Snapshot struct {
	Setting   Setting            `json:"setting"`
	LeadDays  []LeadDaysRule     `json:"lead_days"`
	Weekdays  []WeekdayRule      `json:"weekdays"`
	Months    []MonthRule        `json:"months"`
	Seasons   []SeasonRule       `json:"seasons"`
	Occupancy []OccupancyRule    `json:"occupancy"`
	TimeRules []TimeRule         `json:"time_rules"`
	RatePlans []RatePlanFactor   `json:"rate_plans"`
	Intervals []IntervalBaseRate `json:"intervals"`
	LoadedAt  time.Time          `json:"loaded_at"`

	location    *time.Location
	weekdays    map[int]Factor
	months      map[int]Factor
	ratePlans   map[snowflake.ID]int
	maxDayAhead int
	sealed      bool
}

// Seal resolves the timezone and builds lookup indexes. It must be called once
// after the snapshot is assembled or decoded.
func (s *Snapshot) Seal() error {
	tz := s.Setting.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, tz)
	}
	s.location = loc

	s.weekdays = make(map[int]Factor, len(s.Weekdays))
	for _, r := range s.Weekdays {
		s.weekdays[r.Weekday] = r.Factor
	}
	s.months = make(map[int]Factor, len(s.Months))
	for _, r := range s.Months {
		s.months[r.Month] = r.Factor
	}
	s.ratePlans = make(map[snowflake.ID]int, len(s.RatePlans))
	for _, r := range s.RatePlans {
		s.ratePlans[r.RatePlanID] = r.Percentage
	}
	s.maxDayAhead = -1
	for _, r := range s.TimeRules {
		if r.DayAhead > s.maxDayAhead {
			s.maxDayAhead = r.DayAhead
		}
	}
	for i := range s.Intervals {
		s.Intervals[i].StartDate = DateOf(s.Intervals[i].StartDate)
		s.Intervals[i].EndDate = DateOf(s.Intervals[i].EndDate)
	}
	s.sealed = true
	return nil
}

func (s *Snapshot) Sealed() bool { return s.sealed }

func (s *Snapshot) SettingID() snowflake.ID { return s.Setting.ID }

// Location is the property timezone.
func (s *Snapshot) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

func (s *Snapshot) WeekdayFactor(isoWeekday int) (Factor, bool) {
	f, ok := s.weekdays[isoWeekday]
	return f, ok
}

func (s *Snapshot) MonthFactor(month int) (Factor, bool) {
	f, ok := s.months[month]
	return f, ok
}

func (s *Snapshot) RatePlanPercentage(ratePlanID snowflake.ID) (int, bool) {
	p, ok := s.ratePlans[ratePlanID]
	return p, ok
}

// MaxDayAhead is the largest day_ahead among active time rules, or -1 when none.
func (s *Snapshot) MaxDayAhead() int {
	return s.maxDayAhead
}
