package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"go.uber.org/zap"
)

const keyRecalculationLock = "%s:recalc:lock:%s"

// PropertyLock serializes recalculation per pricing setting. With Redis it is
// shared across instances, otherwise it only guards the current process.
type PropertyLock struct {
	locker *Locker
	cfg    *config.PricingConfigHolder
	log    *zap.Logger

	mu    sync.Mutex
	local map[snowflake.ID]chan struct{}
}

func NewPropertyLock(locker *Locker, cfg *config.PricingConfigHolder, log *zap.Logger) *PropertyLock {
	return &PropertyLock{
		locker: locker,
		cfg:    cfg,
		log:    log.Named("lock.property"),
		local:  make(map[snowflake.ID]chan struct{}),
	}
}

func (p *PropertyLock) Distributed() bool {
	return p.locker != nil
}

// Lock blocks until the setting is held or ctx ends. The returned function
// releases the hold and is safe to call once.
func (p *PropertyLock) Lock(ctx context.Context, settingID snowflake.ID) (func(), error) {
	if p.locker == nil {
		return p.lockLocal(ctx, settingID)
	}

	pricingCfg := p.cfg.Get()
	key := fmt.Sprintf(keyRecalculationLock, pricingCfg.CacheKeyPrefix, settingID)
	token, err := p.locker.Acquire(ctx, key, pricingCfg.LockTTL, pricingCfg.LockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire recalculation lock %s: %w", settingID, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go p.keepAlive(ctx, settingID, key, token, pricingCfg.LockTTL, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			err := p.locker.Release(releaseCtx, key, token)
			switch {
			case errors.Is(err, ErrLockLost):
				p.log.Warn("recalculation lock expired before release",
					zap.String("setting_id", settingID.String()),
					zap.Duration("ttl", pricingCfg.LockTTL),
				)
			case err != nil:
				p.log.Warn("release recalculation lock failed",
					zap.String("setting_id", settingID.String()),
					zap.Error(err),
				)
			}
		})
	}, nil
}

// keepAlive extends the lock every third of its ttl until stop is closed, so
// a run longer than the ttl keeps exclusive access.
func (p *PropertyLock) keepAlive(ctx context.Context, settingID snowflake.ID, key, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	extendCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := p.locker.Extend(extendCtx, key, token, ttl)
			if errors.Is(err, ErrLockLost) {
				p.log.Warn("recalculation lock lost while running",
					zap.String("setting_id", settingID.String()),
				)
				return
			}
			if err != nil {
				p.log.Warn("extend recalculation lock failed",
					zap.String("setting_id", settingID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

func (p *PropertyLock) lockLocal(ctx context.Context, settingID snowflake.ID) (func(), error) {
	p.mu.Lock()
	sem, ok := p.local[settingID]
	if !ok {
		sem = make(chan struct{}, 1)
		p.local[settingID] = sem
	}
	p.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire recalculation lock %s: %w", settingID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-sem })
	}, nil
}
