package ratecache

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
)

// MemoryCache is a process-local Cache for single instance deployments and tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[snowflake.ID]*pricingdomain.Snapshot
	epochs  map[snowflake.ID]int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[snowflake.ID]*pricingdomain.Snapshot),
		epochs:  make(map[snowflake.ID]int64),
	}
}

func (c *MemoryCache) Get(_ context.Context, settingID snowflake.ID) (*pricingdomain.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.entries[settingID]
	return snap, ok, nil
}

func (c *MemoryCache) Epoch(_ context.Context, settingID snowflake.ID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochs[settingID], nil
}

func (c *MemoryCache) SetIfEpoch(_ context.Context, settingID snowflake.ID, snap *pricingdomain.Snapshot, epoch int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochs[settingID] != epoch {
		return false, nil
	}
	c.entries[settingID] = snap
	return true, nil
}

func (c *MemoryCache) Invalidate(_ context.Context, settingID snowflake.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochs[settingID]++
	delete(c.entries, settingID)
	return nil
}
