package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTodayUsesPropertyZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	assert.NoError(t, err)

	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2024, 3, 2), Today(now, tokyo))
	assert.Equal(t, date(2024, 3, 1), Today(now, nil))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(date(2024, 3, 1), date(2024, 3, 1)))
	assert.Equal(t, 29, DaysBetween(date(2024, 2, 1), date(2024, 3, 1)))
	assert.Equal(t, -1, DaysBetween(date(2024, 3, 2), date(2024, 3, 1)))
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, 1, ISOWeekday(date(2024, 1, 1)))
	assert.Equal(t, 7, ISOWeekday(date(2024, 1, 7)))
}

func TestValidMonthDay(t *testing.T) {
	assert.True(t, ValidMonthDay(2, 29))
	assert.False(t, ValidMonthDay(2, 30))
	assert.False(t, ValidMonthDay(4, 31))
	assert.False(t, ValidMonthDay(13, 1))
	assert.False(t, ValidMonthDay(1, 0))
}

func TestSeasonRuleContains(t *testing.T) {
	summer := SeasonRule{StartMonth: 6, StartDay: 1, EndMonth: 8, EndDay: 31}
	winter := SeasonRule{StartMonth: 12, StartDay: 15, EndMonth: 1, EndDay: 15}

	assert.True(t, summer.Contains(date(2024, 6, 1)))
	assert.True(t, summer.Contains(date(2024, 8, 31)))
	assert.False(t, summer.Contains(date(2024, 5, 31)))
	assert.False(t, summer.Contains(date(2024, 9, 1)))

	assert.True(t, winter.Contains(date(2024, 12, 15)))
	assert.True(t, winter.Contains(date(2024, 12, 31)))
	assert.True(t, winter.Contains(date(2025, 1, 1)))
	assert.True(t, winter.Contains(date(2025, 1, 15)))
	assert.False(t, winter.Contains(date(2025, 1, 16)))
	assert.False(t, winter.Contains(date(2024, 12, 14)))
}

func TestIntervalCovers(t *testing.T) {
	iv := IntervalBaseRate{StartDate: date(2024, 7, 1), EndDate: date(2024, 7, 10)}

	assert.True(t, iv.Covers(date(2024, 7, 1)))
	assert.True(t, iv.Covers(time.Date(2024, 7, 10, 23, 0, 0, 0, time.UTC)))
	assert.False(t, iv.Covers(date(2024, 7, 11)))
	assert.False(t, iv.Covers(date(2024, 6, 30)))
}
