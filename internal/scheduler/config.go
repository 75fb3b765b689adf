package scheduler

import (
	"time"

	"github.com/xhoantran/HotelMS-server/internal/config"
)

// Config controls the scheduler interval, batch size and job timeout.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   100,
		JobTimeout:  2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config, pricing *config.PricingConfigHolder) Config {
	return Config{
		RunInterval: cfg.SchedulerInterval,
		JobTimeout:  pricing.Get().JobTimeout,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
