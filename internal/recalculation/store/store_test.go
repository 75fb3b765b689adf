package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
	"gorm.io/gorm"
)

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(pricingdomain.Tables()...))
	require.NoError(t, db.AutoMigrate(domain.Tables()...))
	return db
}

func seedInventory(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&pricingdomain.Setting{
		ID: 1, PropertyID: 2, LeadDayWindow: 60, DefaultBaseRate: 100, Timezone: "UTC",
	}).Error)
	require.NoError(t, db.Create(&domain.Property{ID: 2, Name: "Seaside", ExternalID: strPtr("cm-prop")}).Error)
	require.NoError(t, db.Create(&domain.Property{ID: 3, Name: "Other"}).Error)
	require.NoError(t, db.Create([]domain.RoomType{
		{ID: 12, PropertyID: 2, Name: "Deluxe"},
		{ID: 11, PropertyID: 2, Name: "Standard"},
		{ID: 31, PropertyID: 3, Name: "Elsewhere"},
	}).Error)
	require.NoError(t, db.Create([]domain.RatePlan{
		{ID: 101, RoomTypeID: 11, Name: "BAR", ExternalID: strPtr("cm-101")},
		{ID: 102, RoomTypeID: 11, Name: "Local"},
		{ID: 103, RoomTypeID: 12, Name: "Empty", ExternalID: strPtr("")},
		{ID: 301, RoomTypeID: 31, Name: "Foreign", ExternalID: strPtr("cm-301")},
	}).Error)
	require.NoError(t, db.Create([]domain.Restriction{
		{ID: 1001, RatePlanID: 101, Date: day(15), Rate: 100, BaseRate: 100},
		{ID: 1002, RatePlanID: 101, Date: day(16), Rate: 100, BaseRate: 100},
		{ID: 1003, RatePlanID: 102, Date: day(15), Rate: 90, BaseRate: 90},
		{ID: 1004, RatePlanID: 101, Date: day(20), Rate: 100, BaseRate: 100},
		{ID: 3001, RatePlanID: 301, Date: day(15), Rate: 50, BaseRate: 50},
	}).Error)
	require.NoError(t, db.Create([]domain.Occupancy{
		{RoomTypeID: 11, Date: day(15), Booked: 3},
		{RoomTypeID: 11, Date: day(16), Booked: 1},
		{RoomTypeID: 11, Date: day(25), Booked: 9},
		{RoomTypeID: 31, Date: day(15), Booked: 4},
	}).Error)
}

func TestRatePlanDirectory(t *testing.T) {
	db := setupTestDB(t)
	seedInventory(t, db)
	ctx := context.Background()
	dir := NewRatePlanDirectory()

	roomTypes, err := dir.RoomTypes(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{11, 12}, roomTypes)

	synced, err := dir.Synced(ctx, db, roomTypes)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, domain.RatePlanRef{ID: 101, RoomTypeID: 11, ExternalID: "cm-101"}, synced[101])

	ext, err := dir.PropertyExternalID(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, "cm-prop", ext)

	ext, err = dir.PropertyExternalID(ctx, db, 99)
	require.NoError(t, err)
	assert.Empty(t, ext)

	empty, err := dir.Synced(ctx, db, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOccupancySourceLoad(t *testing.T) {
	db := setupTestDB(t)
	seedInventory(t, db)

	occ, err := NewOccupancySource().Load(context.Background(), db, domain.Scope{
		RoomTypeIDs: []snowflake.ID{11, 12},
		From:        day(15),
		To:          day(20),
	})
	require.NoError(t, err)

	assert.Len(t, occ, 2)
	assert.Equal(t, 3, occ.Booked(11, day(15)))
	assert.Equal(t, 1, occ.Booked(11, day(16)))
	assert.Zero(t, occ.Booked(11, day(25)))
	assert.Zero(t, occ.Booked(31, day(15)))
}

func TestRestrictionStoreListAndApply(t *testing.T) {
	db := setupTestDB(t)
	seedInventory(t, db)
	ctx := context.Background()
	store := NewRestrictionStore()
	scope := domain.Scope{RoomTypeIDs: []snowflake.ID{11}, From: day(15), To: day(16)}

	rows, err := store.List(ctx, db, scope)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, snowflake.ID(1001), rows[0].ID)
	assert.Equal(t, snowflake.ID(11), rows[0].RoomTypeID)
	assert.Equal(t, snowflake.ID(1003), rows[1].ID)
	assert.Equal(t, snowflake.ID(1002), rows[2].ID)
	assert.True(t, rows[2].Date.Equal(day(16)))

	err = db.Transaction(func(tx *gorm.DB) error {
		return store.Apply(ctx, tx, []domain.Change{
			{RestrictionID: 1001, RatePlanID: 101, Date: day(15), Rate: 330, BaseRate: 180},
		})
	})
	require.NoError(t, err)

	var updated domain.Restriction
	require.NoError(t, db.First(&updated, "id = ?", 1001).Error)
	assert.Equal(t, int64(330), updated.Rate)
	assert.Equal(t, int64(180), updated.BaseRate)
}

func TestRestrictionStoreApplyMissingRow(t *testing.T) {
	db := setupTestDB(t)
	seedInventory(t, db)

	err := NewRestrictionStore().Apply(context.Background(), db, []domain.Change{{RestrictionID: 9999, Rate: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
