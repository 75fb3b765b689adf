package ratecache

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/xhoantran/HotelMS-server/internal/config"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"go.uber.org/fx"
)

// NewCache picks Redis when a client is configured and memory otherwise.
func NewCache(client *redis.Client, cfg *config.PricingConfigHolder) Cache {
	if client == nil {
		return NewMemoryCache()
	}
	return NewRedisCache(client, cfg.Get().CacheKeyPrefix)
}

var Module = fx.Module("ratecache",
	fx.Provide(NewCache),
	fx.Provide(NewRuleCache),
	fx.Provide(func(c *RuleCache) pricingdomain.Invalidator { return c }),
	fx.Provide(func(c *RuleCache) pricingdomain.SnapshotReader { return c }),
)
