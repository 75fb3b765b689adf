package domain

import "fmt"

// Factor adjusts a rate either by a percentage or by a fixed increment in minor
// units. A stored rule carries exactly one non-zero representation.
type Factor struct {
	Percentage int   `json:"percentage" gorm:"column:percentage;not null"`
	Increment  int64 `json:"increment" gorm:"column:increment;not null"`
}

// Neutral is returned by lookups that do not match any rule.
var Neutral = Factor{}

func Percentage(p int) Factor {
	return Factor{Percentage: p}
}

func Increment(i int64) Factor {
	return Factor{Increment: i}
}

// NewFactor builds a factor from the two stored columns and validates it.
func NewFactor(percentage int, increment int64) (Factor, error) {
	f := Factor{Percentage: percentage, Increment: increment}
	if err := f.Validate(); err != nil {
		return Factor{}, err
	}
	return f, nil
}

func (f Factor) IsIncrement() bool {
	return f.Increment != 0
}

func (f Factor) IsNeutral() bool {
	return f.Percentage == 0 && f.Increment == 0
}

// Validate checks a factor authored for a threshold rule (season, occupancy, time).
func (f Factor) Validate() error {
	if f.IsNeutral() {
		return fmt.Errorf("%w: percentage or increment is required", ErrInvalidFactor)
	}
	return f.ValidateSlot()
}

// ValidateSlot checks a factor stored in a fixed slot (lead days, weekday, month),
// where the neutral factor is a legitimate value.
func (f Factor) ValidateSlot() error {
	if f.Percentage != 0 && f.Increment != 0 {
		return fmt.Errorf("%w: percentage and increment are mutually exclusive", ErrInvalidFactor)
	}
	if f.Percentage < -100 {
		return fmt.Errorf("%w: percentage below -100", ErrInvalidFactor)
	}
	return nil
}

func (f Factor) String() string {
	if f.IsIncrement() {
		return fmt.Sprintf("%+d", f.Increment)
	}
	return fmt.Sprintf("%+d%%", f.Percentage)
}
