package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func providePricingMetrics(cfg config.Config) *PricingMetrics {
	return PricingWithConfig(ConfigFrom(cfg))
}

func provideSchedulerMetrics(cfg config.Config) *SchedulerMetrics {
	return SchedulerWithConfig(ConfigFrom(cfg))
}

// runPusher pushes the default registry on an interval while the app runs.
func runPusher(lc fx.Lifecycle, cfg config.Config, pusher Pusher, log *zap.Logger) {
	if pusher == nil {
		return
	}
	log = log.Named("metrics")
	interval := cfg.Metrics.PushInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := pusher.Push(ctx, prometheus.DefaultGatherer); err != nil {
							log.Warn("metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			// final flush so short-lived runs still report
			if err := pusher.Push(stopCtx, prometheus.DefaultGatherer); err != nil {
				log.Warn("final metrics push failed", zap.Error(err))
			}
			return nil
		},
	})
}

var Module = fx.Module("metrics",
	fx.Provide(providePricingMetrics),
	fx.Provide(provideSchedulerMetrics),
	fx.Provide(NewPusher),
	fx.Invoke(runPusher),
)
