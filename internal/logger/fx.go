package logger

import (
	"context"

	"github.com/xhoantran/HotelMS-server/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFromConfig builds the logger for the running service.
func NewFromConfig(cfg config.Config) (*zap.Logger, error) {
	return New(Options{
		Level:       cfg.LogLevel,
		Service:     cfg.AppName,
		Environment: cfg.Environment,
		Console:     cfg.Environment == "development",
	})
}

func registerHooks(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// Sync on a terminal stderr reports EINVAL; nothing is lost.
			_ = log.Sync()
			return nil
		},
	})
}

var Module = fx.Module("logger",
	fx.Provide(NewFromConfig),
	fx.Invoke(registerHooks),
)
