package pipeline

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
)

const (
	roomTypeA snowflake.ID = 10
	roomTypeB snowflake.ID = 20
	planA     snowflake.ID = 100
	planB     snowflake.ID = 200
	planLocal snowflake.ID = 300
)

var now = time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return pricingdomain.DateOf(now).AddDate(0, 0, offset)
}

func newSnapshot(t *testing.T, mutate func(s *pricingdomain.Snapshot)) *pricingdomain.Snapshot {
	t.Helper()
	snap := &pricingdomain.Snapshot{
		Setting: pricingdomain.Setting{
			ID:              1,
			Enabled:         true,
			LeadDayWindow:   60,
			DefaultBaseRate: 120,
			Timezone:        "UTC",
			Dimensions: pricingdomain.Dimensions{
				LeadDays:  true,
				Occupancy: true,
			},
		},
		LeadDays: []pricingdomain.LeadDaysRule{
			{LeadDays: 0, Factor: pricingdomain.Percentage(50)},
			{LeadDays: 1, Factor: pricingdomain.Neutral},
		},
		Occupancy: []pricingdomain.OccupancyRule{
			{MinOccupancy: 1, Factor: pricingdomain.Increment(150)},
		},
	}
	if mutate != nil {
		mutate(snap)
	}
	require.NoError(t, snap.Seal())
	return snap
}

func synced() map[snowflake.ID]domain.RatePlanRef {
	return map[snowflake.ID]domain.RatePlanRef{
		planA: {ID: planA, RoomTypeID: roomTypeA, ExternalID: "cm-a"},
		planB: {ID: planB, RoomTypeID: roomTypeB, ExternalID: "cm-b"},
	}
}

func baseInput() domain.Input {
	occ := domain.OccupancyMap{}
	occ.Set(roomTypeA, day(0), 1)
	return domain.Input{
		RoomTypeIDs: []snowflake.ID{roomTypeA, roomTypeB},
		From:        day(0),
		To:          day(2),
		Occupancy:   occ,
		Restrictions: []domain.RestrictionRow{
			{ID: 1, RatePlanID: planA, RoomTypeID: roomTypeA, Date: day(0)},
			{ID: 2, RatePlanID: planA, RoomTypeID: roomTypeA, Date: day(1)},
			{ID: 3, RatePlanID: planB, RoomTypeID: roomTypeB, Date: day(0)},
		},
		Synced: synced(),
		Now:    now,
	}
}

func TestRunComputesChangedRows(t *testing.T) {
	res, err := Run(newSnapshot(t, nil), baseInput())
	require.NoError(t, err)

	require.Len(t, res.Changes, 3)
	assert.Empty(t, res.Unsynced)

	byID := map[snowflake.ID]domain.Change{}
	for _, c := range res.Changes {
		byID[c.RestrictionID] = c
	}
	assert.Equal(t, int64(180), byID[1].BaseRate)
	assert.Equal(t, int64(330), byID[1].Rate)
	assert.Equal(t, int64(120), byID[2].BaseRate)
	assert.Equal(t, int64(120), byID[2].Rate)
	assert.Equal(t, int64(180), byID[3].BaseRate)
	assert.Equal(t, int64(180), byID[3].Rate)

	assert.True(t, res.Changes[0].Date.Equal(day(0)))
	assert.Equal(t, planA, res.Changes[0].RatePlanID)
	assert.Equal(t, planB, res.Changes[1].RatePlanID)
	assert.True(t, res.Changes[2].Date.Equal(day(1)))
}

func TestRunIsIdempotent(t *testing.T) {
	snap := newSnapshot(t, nil)
	in := baseInput()

	first, err := Run(snap, in)
	require.NoError(t, err)
	require.NotEmpty(t, first.Changes)

	applied := make(map[snowflake.ID]domain.Change, len(first.Changes))
	for _, c := range first.Changes {
		applied[c.RestrictionID] = c
	}
	for i, row := range in.Restrictions {
		if c, ok := applied[row.ID]; ok {
			in.Restrictions[i].Rate = c.Rate
			in.Restrictions[i].BaseRate = c.BaseRate
		}
	}

	second, err := Run(snap, in)
	require.NoError(t, err)
	assert.True(t, second.Empty())
}

func TestRunSkipsRowsOutOfScope(t *testing.T) {
	in := baseInput()
	in.RoomTypeIDs = []snowflake.ID{roomTypeA}
	in.From = day(-3)
	in.Restrictions = append(in.Restrictions,
		domain.RestrictionRow{ID: 4, RatePlanID: planA, RoomTypeID: roomTypeA, Date: day(-1)},
		domain.RestrictionRow{ID: 5, RatePlanID: planA, RoomTypeID: roomTypeA, Date: day(5)},
	)

	res, err := Run(newSnapshot(t, nil), in)
	require.NoError(t, err)

	var ids []snowflake.ID
	for _, c := range res.Changes {
		ids = append(ids, c.RestrictionID)
	}
	assert.ElementsMatch(t, []snowflake.ID{1, 2}, ids)
}

func TestRunReportsUnsyncedRatePlans(t *testing.T) {
	in := baseInput()
	in.Restrictions = append(in.Restrictions,
		domain.RestrictionRow{ID: 6, RatePlanID: planLocal, RoomTypeID: roomTypeB, Date: day(0)},
		domain.RestrictionRow{ID: 7, RatePlanID: planLocal, RoomTypeID: roomTypeB, Date: day(1)},
	)

	res, err := Run(newSnapshot(t, nil), in)
	require.NoError(t, err)

	assert.Equal(t, []snowflake.ID{planLocal}, res.Unsynced)
	for _, c := range res.Changes {
		assert.NotEqual(t, planLocal, c.RatePlanID)
	}
}

func TestRunDisabledSettingIsEmpty(t *testing.T) {
	snap := newSnapshot(t, func(s *pricingdomain.Snapshot) {
		s.Setting.Enabled = false
	})

	res, err := Run(snap, baseInput())
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestRunRangeBeforeToday(t *testing.T) {
	in := baseInput()
	in.From = day(-5)
	in.To = day(-1)

	res, err := Run(newSnapshot(t, nil), in)
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestRunMissingRatePlanFactor(t *testing.T) {
	snap := newSnapshot(t, func(s *pricingdomain.Snapshot) {
		s.Setting.Dimensions.RatePlan = true
		s.RatePlans = []pricingdomain.RatePlanFactor{{RatePlanID: planA, Percentage: 10}}
	})

	_, err := Run(snap, baseInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidInput)
}

func TestRunFreeBaseRate(t *testing.T) {
	snap := newSnapshot(t, func(s *pricingdomain.Snapshot) {
		s.LeadDays[0].Factor = pricingdomain.Percentage(-100)
	})
	in := baseInput()
	in.Restrictions = in.Restrictions[:1]
	in.Restrictions[0].Rate = 330
	in.Restrictions[0].BaseRate = 180

	res, err := Run(snap, in)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Zero(t, res.Changes[0].BaseRate)
	assert.Zero(t, res.Changes[0].Rate)
}
