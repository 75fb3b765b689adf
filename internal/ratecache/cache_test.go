package ratecache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
)

func sealedSnapshot(t *testing.T, settingID int64, baseRate int64) *pricingdomain.Snapshot {
	t.Helper()
	snap := &pricingdomain.Snapshot{
		Setting: pricingdomain.Setting{
			ID:              snowflakeID(settingID),
			Enabled:         true,
			DefaultBaseRate: baseRate,
			Timezone:        "Asia/Ho_Chi_Minh",
			Dimensions:      pricingdomain.Dimensions{Weekday: true},
		},
		Weekdays: []pricingdomain.WeekdayRule{{Weekday: 6, Factor: pricingdomain.Percentage(25)}},
	}
	require.NoError(t, snap.Seal())
	return snap
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "rms"), mr
}

func exerciseEpochProtocol(t *testing.T, cache Cache) {
	t.Helper()
	ctx := context.Background()
	id := snowflakeID(1)

	_, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	epoch, err := cache.Epoch(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, epoch)

	stored, err := cache.SetIfEpoch(ctx, id, sealedSnapshot(t, 1, 100), epoch)
	require.NoError(t, err)
	assert.True(t, stored)

	got, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), got.Setting.DefaultBaseRate)
	assert.True(t, got.Sealed())

	require.NoError(t, cache.Invalidate(ctx, id))
	_, ok, err = cache.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err = cache.SetIfEpoch(ctx, id, sealedSnapshot(t, 1, 200), epoch)
	require.NoError(t, err)
	assert.False(t, stored, "a load started before invalidation must not be stored")

	epoch, err = cache.Epoch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), epoch)

	stored, err = cache.SetIfEpoch(ctx, id, sealedSnapshot(t, 1, 300), epoch)
	require.NoError(t, err)
	assert.True(t, stored)

	got, ok, err = cache.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(300), got.Setting.DefaultBaseRate)

	_, ok, err = cache.Get(ctx, snowflakeID(2))
	require.NoError(t, err)
	assert.False(t, ok, "keys are isolated per setting")
}

func TestMemoryCacheEpochProtocol(t *testing.T) {
	exerciseEpochProtocol(t, NewMemoryCache())
}

func TestRedisCacheEpochProtocol(t *testing.T) {
	cache, _ := newRedisCache(t)
	exerciseEpochProtocol(t, cache)
}

func TestRedisCacheKeysShareHashTag(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	_, err := cache.SetIfEpoch(ctx, 77, sealedSnapshot(t, 77, 100), 0)
	require.NoError(t, err)
	assert.True(t, mr.Exists("rms:snapshot:{77}"))

	require.NoError(t, cache.Invalidate(ctx, 77))
	assert.False(t, mr.Exists("rms:snapshot:{77}"))
	epoch, err := mr.Get("rms:epoch:{77}")
	require.NoError(t, err)
	assert.Equal(t, "1", epoch)
}

func TestRedisCacheDecodedSnapshotIsUsable(t *testing.T) {
	cache, _ := newRedisCache(t)
	ctx := context.Background()

	_, err := cache.SetIfEpoch(ctx, 5, sealedSnapshot(t, 5, 100), 0)
	require.NoError(t, err)

	got, ok, err := cache.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Asia/Ho_Chi_Minh", got.Location().String())
	f, found := got.WeekdayFactor(6)
	assert.True(t, found)
	assert.Equal(t, pricingdomain.Percentage(25), f)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	cache, mr := newRedisCache(t)
	require.NoError(t, mr.Set("rms:snapshot:{9}", "{not json"))

	_, ok, err := cache.Get(context.Background(), 9)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorruptEntry)
}
