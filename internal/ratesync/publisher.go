// Package ratesync forwards persisted nightly rates to the channel manager.
package ratesync

import (
	"context"
	"errors"
	"time"
)

var ErrMissingExternalID = errors.New("missing_external_id")

// RateUpdate is one nightly rate of one rate plan as the channel manager knows it.
type RateUpdate struct {
	PropertyExternalID string `json:"property_external_id"`
	RatePlanExternalID string `json:"rate_plan_external_id"`
	Date               string `json:"date"`
	Rate               int64  `json:"rate"`
}

func NewRateUpdate(propertyExternalID, ratePlanExternalID string, date time.Time, rate int64) RateUpdate {
	return RateUpdate{
		PropertyExternalID: propertyExternalID,
		RatePlanExternalID: ratePlanExternalID,
		Date:               date.Format(time.DateOnly),
		Rate:               rate,
	}
}

// Publisher delivers rate updates and reports how many were accepted.
type Publisher interface {
	Publish(ctx context.Context, updates []RateUpdate) (int, error)
}
