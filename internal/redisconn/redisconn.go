package redisconn

import (
	"context"
	"errors"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New returns a client for the configured Redis, or nil when Redis is disabled.
func New(cfg config.Config) (*redis.Client, error) {
	redisCfg := cfg.Redis
	if !redisCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(redisCfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(redisCfg.Password),
		DB:       redisCfg.DB,
	}), nil
}

func registerHooks(lc fx.Lifecycle, client *redis.Client, log *zap.Logger) {
	if client == nil {
		log.Info("redis disabled, using in-process cache and locks")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
}

var Module = fx.Module("redis",
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
