package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig tunes the rule engine runtime. It is reloaded when pricing.yml changes.
type PricingConfig struct {
	CacheKeyPrefix    string        `mapstructure:"cacheKeyPrefix"`
	LockTTL           time.Duration `mapstructure:"lockTTL"`
	LockRetryInterval time.Duration `mapstructure:"lockRetryInterval"`
	HorizonDays       int           `mapstructure:"horizonDays"`
	SyncTopic         string        `mapstructure:"syncTopic"`
	JobTimeout        time.Duration `mapstructure:"jobTimeout"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		CacheKeyPrefix:    "rms",
		LockTTL:           30 * time.Second,
		LockRetryInterval: 100 * time.Millisecond,
		HorizonDays:       365,
		SyncTopic:         "rms.rate-updates",
		JobTimeout:        2 * time.Minute,
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

// NewStaticPricingConfigHolder returns a holder that never reloads.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/hotelms")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.cacheKeyPrefix", defaults.CacheKeyPrefix)
	v.SetDefault("pricing.lockTTL", defaults.LockTTL)
	v.SetDefault("pricing.lockRetryInterval", defaults.LockRetryInterval)
	v.SetDefault("pricing.horizonDays", defaults.HorizonDays)
	v.SetDefault("pricing.syncTopic", defaults.SyncTopic)
	v.SetDefault("pricing.jobTimeout", defaults.JobTimeout)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPricingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func validatePricingConfig(cfg PricingConfig) error {
	if strings.TrimSpace(cfg.CacheKeyPrefix) == "" {
		return errors.New("pricing.cacheKeyPrefix cannot be empty")
	}
	if cfg.LockTTL <= 0 {
		return errors.New("pricing.lockTTL must be positive")
	}
	if cfg.LockRetryInterval <= 0 {
		return errors.New("pricing.lockRetryInterval must be positive")
	}
	if cfg.HorizonDays <= 0 {
		return errors.New("pricing.horizonDays must be positive")
	}
	if strings.TrimSpace(cfg.SyncTopic) == "" {
		return errors.New("pricing.syncTopic cannot be empty")
	}
	if cfg.JobTimeout <= 0 {
		return errors.New("pricing.jobTimeout must be positive")
	}
	return nil
}
