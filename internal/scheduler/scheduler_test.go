package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhoantran/HotelMS-server/internal/clock"
	"github.com/xhoantran/HotelMS-server/internal/config"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	recalcdomain "github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recalcCall struct {
	settingID snowflake.ID
	from      time.Time
	to        time.Time
	trigger   recalcdomain.Trigger
}

type stubRecalc struct {
	mu    sync.Mutex
	calls []recalcCall
	err   error
}

func (s *stubRecalc) Recalculate(context.Context, recalcdomain.Request) (*recalcdomain.Report, error) {
	return nil, errors.New("not used")
}

func (s *stubRecalc) RecalculateAll(context.Context, snowflake.ID) (*recalcdomain.Report, error) {
	return nil, errors.New("not used")
}

func (s *stubRecalc) HandleOccupancyChange(context.Context, snowflake.ID, []snowflake.ID, time.Time, time.Time) (*recalcdomain.Report, error) {
	return nil, errors.New("not used")
}

func (s *stubRecalc) RecalculateDates(_ context.Context, settingID snowflake.ID, from, to time.Time, trigger recalcdomain.Trigger) (*recalcdomain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recalcCall{settingID: settingID, from: from, to: to, trigger: trigger})
	if s.err != nil {
		return nil, s.err
	}
	return &recalcdomain.Report{SettingID: settingID, From: from, To: to}, nil
}

func (s *stubRecalc) Calls() []recalcCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recalcCall(nil), s.calls...)
}

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&pricingdomain.TriggerHandle{}))
	return db
}

func newTestScheduler(t *testing.T, db *gorm.DB, clk clock.Clock, recalc recalcdomain.Service, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	sched, err := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Recalc: recalc,
		Config: cfg,
	})
	require.NoError(t, err)
	return sched
}

func createHandle(t *testing.T, db *gorm.DB, id, settingID snowflake.ID, hour, dayAhead int, tz string, enabled bool) {
	t.Helper()
	require.NoError(t, db.Create(&pricingdomain.TriggerHandle{
		ID:         id,
		TimeRuleID: id + 1000,
		SettingID:  settingID,
		Hour:       hour,
		Minute:     "*",
		Timezone:   tz,
		DayAhead:   dayAhead,
		Enabled:    enabled,
	}).Error)
}

func lastFiredOn(t *testing.T, db *gorm.DB, id snowflake.ID) *time.Time {
	t.Helper()
	var h pricingdomain.TriggerHandle
	require.NoError(t, db.First(&h, "id = ?", id).Error)
	return h.LastFiredOn
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTimeTriggerWaitsForHour(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 8, 30, 0, 0, time.UTC))
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clk, recalc, Config{})
	createHandle(t, db, 1, 100, 9, 3, "UTC", true)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, recalc.Calls())
	assert.Nil(t, lastFiredOn(t, db, 1))
}

func TestTimeTriggerFiresOncePerDay(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC))
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clk, recalc, Config{})
	createHandle(t, db, 1, 100, 8, 3, "UTC", true)

	require.NoError(t, sched.RunOnce(context.Background()))
	calls := recalc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, snowflake.ID(100), calls[0].settingID)
	assert.True(t, calls[0].from.Equal(day(15)))
	assert.True(t, calls[0].to.Equal(day(18)))
	assert.Equal(t, recalcdomain.TriggerTime, calls[0].trigger)

	fired := lastFiredOn(t, db, 1)
	require.NotNil(t, fired)
	assert.True(t, pricingdomain.DateOf(*fired).Equal(day(15)))

	clk.Advance(3 * time.Hour)
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Len(t, recalc.Calls(), 1)

	clk.Advance(21 * time.Hour)
	require.NoError(t, sched.RunOnce(context.Background()))
	calls = recalc.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[1].from.Equal(day(16)))
	assert.True(t, calls[1].to.Equal(day(19)))
}

func TestTimeTriggerSkipsDisabledHandles(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC))
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clk, recalc, Config{})
	createHandle(t, db, 1, 100, 8, 3, "UTC", false)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Empty(t, recalc.Calls())
}

func TestTimeTriggerUsesPropertyTimezone(t *testing.T) {
	db := setupTestDB(t)
	// 03:00 on Oct 16 in Ho Chi Minh City
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 20, 0, 0, 0, time.UTC))
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clk, recalc, Config{})
	createHandle(t, db, 1, 100, 2, 0, "Asia/Ho_Chi_Minh", true)
	createHandle(t, db, 2, 200, 4, 0, "Asia/Ho_Chi_Minh", true)

	require.NoError(t, sched.RunOnce(context.Background()))
	calls := recalc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, snowflake.ID(100), calls[0].settingID)
	assert.True(t, calls[0].from.Equal(day(16)))
	assert.True(t, calls[0].to.Equal(day(16)))
}

func TestTimeTriggerGroupsHandlesPerSetting(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC))
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clk, recalc, Config{BatchSize: 1})
	createHandle(t, db, 1, 100, 6, 2, "UTC", true)
	createHandle(t, db, 2, 100, 9, 5, "UTC", true)
	createHandle(t, db, 3, 200, 7, 1, "UTC", true)

	require.NoError(t, sched.RunOnce(context.Background()))
	calls := recalc.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, snowflake.ID(100), calls[0].settingID)
	assert.True(t, calls[0].to.Equal(day(20)))
	assert.Equal(t, snowflake.ID(200), calls[1].settingID)
	assert.True(t, calls[1].to.Equal(day(16)))

	for _, id := range []snowflake.ID{1, 2, 3} {
		assert.NotNil(t, lastFiredOn(t, db, id))
	}
}

func TestTimeTriggerReleasesClaimOnFailure(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC))
	recalc := &stubRecalc{err: errors.New("database is down")}
	sched := newTestScheduler(t, db, clk, recalc, Config{})
	createHandle(t, db, 1, 100, 8, 3, "UTC", true)

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), jobTimeTriggers)
	assert.Nil(t, lastFiredOn(t, db, 1))

	recalc.mu.Lock()
	recalc.err = nil
	recalc.mu.Unlock()
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Len(t, recalc.Calls(), 2)
	assert.NotNil(t, lastFiredOn(t, db, 1))
}

func TestTimeTriggerTimeoutIsSoft(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC))
	recalc := &stubRecalc{err: context.DeadlineExceeded}
	sched := newTestScheduler(t, db, clk, recalc, Config{})
	createHandle(t, db, 1, 100, 8, 3, "UTC", true)

	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Nil(t, lastFiredOn(t, db, 1))
}

func TestTimeTriggerSkipsUnknownTimezone(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC))
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clk, recalc, Config{})
	createHandle(t, db, 1, 100, 8, 3, "Mars/Olympus", true)
	createHandle(t, db, 2, 200, 8, 3, "UTC", true)

	require.NoError(t, sched.RunOnce(context.Background()))
	calls := recalc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, snowflake.ID(200), calls[0].settingID)
}

func TestIsDue(t *testing.T) {
	fired := day(15)
	now := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

	_, ok, err := isDue(pricingdomain.TriggerHandle{Hour: 9, Timezone: "UTC"}, now)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = isDue(pricingdomain.TriggerHandle{Hour: 9, Timezone: "UTC", LastFiredOn: &fired}, now)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = isDue(pricingdomain.TriggerHandle{Hour: 9, Timezone: "Nowhere/City"}, now)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidTimezone)
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestNewSchedulerStopsLoopOnAppStop(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC))
	createHandle(t, db, 1, 100, 10, 0, "UTC", true)
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clk, recalc, Config{RunInterval: time.Hour})

	lc := fxtest.NewLifecycle(t)
	NewScheduler(lc, config.Config{SchedulerEnabled: true}, sched)
	lc.RequireStart()
	require.Eventually(t, func() bool { return len(recalc.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	lc.RequireStop()
}

func TestNewSchedulerDisabledAddsNoHooks(t *testing.T) {
	db := setupTestDB(t)
	recalc := &stubRecalc{}
	sched := newTestScheduler(t, db, clock.NewFakeClock(day(15)), recalc, Config{RunInterval: time.Hour})

	lc := fxtest.NewLifecycle(t)
	NewScheduler(lc, config.Config{SchedulerEnabled: false}, sched)
	lc.RequireStart().RequireStop()
	assert.Empty(t, recalc.Calls())
}
