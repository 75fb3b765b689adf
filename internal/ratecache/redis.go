package ratecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
)

const (
	keySnapshot = "%s:snapshot:{%s}"
	keyEpoch    = "%s:epoch:{%s}"
)

const setIfEpochScript = `
local current = redis.call("GET", KEYS[2])
if not current then
  current = "0"
end
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2])
return 1
`

const invalidateScript = `
local epoch = redis.call("INCR", KEYS[2])
redis.call("DEL", KEYS[1])
return epoch
`

// RedisCache shares snapshots between instances. Both keys of a setting use
// the same hash tag so the scripts stay on one cluster slot.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	setScript  *redis.Script
	dropScript *redis.Script
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "rms"
	}
	return &RedisCache{
		client:     client,
		prefix:     prefix,
		setScript:  redis.NewScript(setIfEpochScript),
		dropScript: redis.NewScript(invalidateScript),
	}
}

func (c *RedisCache) snapshotKey(settingID snowflake.ID) string {
	return fmt.Sprintf(keySnapshot, c.prefix, settingID)
}

func (c *RedisCache) epochKey(settingID snowflake.ID) string {
	return fmt.Sprintf(keyEpoch, c.prefix, settingID)
}

func (c *RedisCache) Get(ctx context.Context, settingID snowflake.ID) (*pricingdomain.Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.snapshotKey(settingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snap pricingdomain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if err := snap.Seal(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return &snap, true, nil
}

func (c *RedisCache) Epoch(ctx context.Context, settingID snowflake.ID) (int64, error) {
	epoch, err := c.client.Get(ctx, c.epochKey(settingID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return epoch, err
}

func (c *RedisCache) SetIfEpoch(ctx context.Context, settingID snowflake.ID, snap *pricingdomain.Snapshot, epoch int64) (bool, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("encode snapshot: %w", err)
	}
	stored, err := c.setScript.Run(ctx, c.client,
		[]string{c.snapshotKey(settingID), c.epochKey(settingID)},
		strconv.FormatInt(epoch, 10), raw,
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, settingID snowflake.ID) error {
	return c.dropScript.Run(ctx, c.client,
		[]string{c.snapshotKey(settingID), c.epochKey(settingID)},
	).Err()
}
