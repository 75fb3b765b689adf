package ratesync

import (
	"context"

	"github.com/xhoantran/HotelMS-server/internal/config"
	obsmetrics "github.com/xhoantran/HotelMS-server/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Pricing   *config.PricingConfigHolder
	Log       *zap.Logger
	Metrics   *obsmetrics.PricingMetrics `optional:"true"`
}

// New returns a Kafka publisher when brokers are configured and a log
// publisher otherwise.
func New(p Params) (Publisher, error) {
	if !p.Config.Kafka.Enabled {
		p.Log.Info("kafka disabled, rate updates are only logged")
		return NewLogPublisher(p.Log), nil
	}

	producer, err := NewSyncProducer(p.Config.Kafka)
	if err != nil {
		return nil, err
	}
	pub := NewKafkaPublisher(producer, p.Pricing, p.Log, p.Metrics)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

var Module = fx.Module("ratesync",
	fx.Provide(New),
)
