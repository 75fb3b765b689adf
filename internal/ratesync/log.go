package ratesync

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher records updates without delivering them. It is used when no
// broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("ratesync.log")}
}

func (p *LogPublisher) Publish(_ context.Context, updates []RateUpdate) (int, error) {
	for _, u := range updates {
		p.log.Info("rate update",
			zap.String("property_external_id", u.PropertyExternalID),
			zap.String("rate_plan_external_id", u.RatePlanExternalID),
			zap.String("date", u.Date),
			zap.Int64("rate", u.Rate),
		)
	}
	return len(updates), nil
}
