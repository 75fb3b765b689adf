package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"go.uber.org/zap"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestLockerTryLockAndRelease(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	token, ok, err := locker.TryLock(ctx, "rms:recalc:lock:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)
	assert.True(t, mr.Exists("rms:recalc:lock:1"))

	_, ok, err = locker.TryLock(ctx, "rms:recalc:lock:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, locker.Release(ctx, "rms:recalc:lock:1", "someone-else"), ErrLockLost)
	assert.True(t, mr.Exists("rms:recalc:lock:1"), "foreign token must not release")

	require.NoError(t, locker.Release(ctx, "rms:recalc:lock:1", token))
	assert.False(t, mr.Exists("rms:recalc:lock:1"))
}

func TestLockerExtendKeepsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	token, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(800 * time.Millisecond)
	require.NoError(t, locker.Extend(ctx, "k", token, time.Second))
	assert.Equal(t, time.Second, mr.TTL("k"))

	assert.ErrorIs(t, locker.Extend(ctx, "k", "someone-else", time.Second), ErrLockLost)

	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, locker.Extend(ctx, "k", token, time.Second), ErrLockLost)
	assert.ErrorIs(t, locker.Release(ctx, "k", token), ErrLockLost)
}

func TestPropertyLockRenewsWhileHeld(t *testing.T) {
	locker, mr := newTestLocker(t)
	cfg := config.DefaultPricingConfig()
	cfg.LockTTL = 90 * time.Millisecond
	pl := NewPropertyLock(locker, config.NewStaticPricingConfigHolder(cfg), zap.NewNop())

	unlock, err := pl.Lock(context.Background(), 42)
	require.NoError(t, err)

	// miniredis only expires on FastForward, so drain most of the ttl and
	// wait for the renewal to restore it.
	mr.FastForward(80 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("rms:recalc:lock:42") > 50*time.Millisecond
	}, time.Second, 5*time.Millisecond)
	assert.True(t, mr.Exists("rms:recalc:lock:42"))

	unlock()
	assert.False(t, mr.Exists("rms:recalc:lock:42"))
}

func TestLockerRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	locker, _ := newTestLocker(t)

	_, _, err := locker.TryLock(ctx, "", time.Minute)
	assert.Error(t, err)
	_, _, err = locker.TryLock(ctx, "k", 0)
	assert.Error(t, err)

	var nilLocker *Locker
	_, _, err = nilLocker.TryLock(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, nilLocker.Release(ctx, "k", "t"))
}

func TestLockerAcquireWaitsForExpiry(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(30 * time.Millisecond)
		mr.FastForward(2 * time.Second)
	}()

	token, err := locker.Acquire(ctx, "k", time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLockerAcquireHonoursContext(t *testing.T) {
	locker, _ := newTestLocker(t)
	_, ok, err := locker.TryLock(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "k", time.Minute, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPropertyLockDistributed(t *testing.T) {
	locker, mr := newTestLocker(t)
	holder := config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())
	pl := NewPropertyLock(locker, holder, zap.NewNop())
	require.True(t, pl.Distributed())

	unlock, err := pl.Lock(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, mr.Exists("rms:recalc:lock:42"))

	unlock()
	unlock()
	assert.False(t, mr.Exists("rms:recalc:lock:42"))
}

func TestPropertyLockLocalSerializes(t *testing.T) {
	holder := config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())
	pl := NewPropertyLock(nil, holder, zap.NewNop())
	require.False(t, pl.Distributed())

	unlock, err := pl.Lock(context.Background(), 7)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pl.Lock(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := pl.Lock(context.Background(), 8)
	require.NoError(t, err)
	other()

	unlock()
	again, err := pl.Lock(context.Background(), 7)
	require.NoError(t, err)
	again()
}
