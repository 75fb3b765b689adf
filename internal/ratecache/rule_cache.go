package ratecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/xhoantran/HotelMS-server/internal/observability/metrics"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Params struct {
	fx.In

	Cache   Cache
	Repo    pricingdomain.RuleRepository
	Log     *zap.Logger
	Metrics *obsmetrics.PricingMetrics `optional:"true"`
}

// RuleCache serves pricing snapshots, loading them from the repository on a
// miss. A Get that starts after Invalidate returned observes the repository
// state from that moment on.
type RuleCache struct {
	cache   Cache
	repo    pricingdomain.RuleRepository
	log     *zap.Logger
	metrics *obsmetrics.PricingMetrics
	group   singleflight.Group
}

func NewRuleCache(p Params) *RuleCache {
	return &RuleCache{
		cache:   p.Cache,
		repo:    p.Repo,
		log:     p.Log.Named("ratecache"),
		metrics: p.Metrics,
	}
}

func (c *RuleCache) Get(ctx context.Context, settingID snowflake.ID) (*pricingdomain.Snapshot, error) {
	snap, ok, err := c.cache.Get(ctx, settingID)
	switch {
	case errors.Is(err, ErrCorruptEntry):
		c.log.Warn("discarding unreadable cached snapshot",
			zap.String("setting_id", settingID.String()),
			zap.Error(err),
		)
	case err != nil:
		return nil, fmt.Errorf("read cached snapshot %s: %w", settingID, err)
	case ok:
		c.metrics.IncCacheLookup(obsmetrics.CacheResultHit)
		return snap, nil
	}
	c.metrics.IncCacheLookup(obsmetrics.CacheResultMiss)

	// The epoch is read before the repository so an invalidation that lands
	// during the load makes the store below a no-op.
	epoch, err := c.cache.Epoch(ctx, settingID)
	if err != nil {
		return nil, fmt.Errorf("read cache epoch %s: %w", settingID, err)
	}

	flightKey := fmt.Sprintf("%s@%d", settingID, epoch)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), settingID, epoch)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pricingdomain.Snapshot), nil
	}
}

func (c *RuleCache) load(ctx context.Context, settingID snowflake.ID, epoch int64) (*pricingdomain.Snapshot, error) {
	start := time.Now()
	snap, err := c.repo.LoadSnapshot(ctx, settingID)
	c.metrics.ObserveCacheLoad(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", settingID, err)
	}

	stored, err := c.cache.SetIfEpoch(ctx, settingID, snap, epoch)
	if err != nil {
		c.log.Warn("store snapshot failed",
			zap.String("setting_id", settingID.String()),
			zap.Error(err),
		)
		return snap, nil
	}
	if !stored {
		c.metrics.IncCacheStaleDiscard()
		c.log.Debug("snapshot invalidated during load, not stored",
			zap.String("setting_id", settingID.String()),
			zap.Int64("epoch", epoch),
		)
	}
	return snap, nil
}

// Invalidate drops the cached snapshot of settingID.
func (c *RuleCache) Invalidate(ctx context.Context, settingID snowflake.ID) error {
	if err := c.cache.Invalidate(ctx, settingID); err != nil {
		return fmt.Errorf("invalidate snapshot %s: %w", settingID, err)
	}
	c.metrics.IncCacheInvalidation()
	c.log.Debug("snapshot invalidated", zap.String("setting_id", settingID.String()))
	return nil
}
