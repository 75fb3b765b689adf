package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
)

// RestrictionRow is a stored restriction joined with the room type of its rate plan.
type RestrictionRow struct {
	ID         snowflake.ID
	RatePlanID snowflake.ID
	RoomTypeID snowflake.ID
	Date       time.Time
	Rate       int64
	BaseRate   int64
}

// RatePlanRef is a rate plan known to the channel manager.
type RatePlanRef struct {
	ID         snowflake.ID
	RoomTypeID snowflake.ID
	ExternalID string
}

type OccupancyKey struct {
	RoomTypeID snowflake.ID
	Date       time.Time
}

// OccupancyMap holds booked counts; absent keys mean nothing is booked.
type OccupancyMap map[OccupancyKey]int

func (m OccupancyMap) Booked(roomTypeID snowflake.ID, date time.Time) int {
	return m[OccupancyKey{RoomTypeID: roomTypeID, Date: pricingdomain.DateOf(date)}]
}

func (m OccupancyMap) Set(roomTypeID snowflake.ID, date time.Time, booked int) {
	m[OccupancyKey{RoomTypeID: roomTypeID, Date: pricingdomain.DateOf(date)}] = booked
}

// Input is everything one pipeline run reads. From and To are inclusive.
type Input struct {
	RoomTypeIDs  []snowflake.ID
	From         time.Time
	To           time.Time
	Occupancy    OccupancyMap
	Restrictions []RestrictionRow
	// Synced maps rate plan id to its channel manager reference.
	Synced map[snowflake.ID]RatePlanRef
	Now    time.Time
}

// Change is a restriction whose computed rate or base rate differs from storage.
type Change struct {
	RestrictionID snowflake.ID
	RatePlanID    snowflake.ID
	RoomTypeID    snowflake.ID
	Date          time.Time
	Rate          int64
	BaseRate      int64
	PreviousRate  int64
	PreviousBase  int64
}

type Result struct {
	Changes  []Change
	Unsynced []snowflake.ID
}

func (r Result) Empty() bool {
	return len(r.Changes) == 0 && len(r.Unsynced) == 0
}

// SortIDs orders ids ascending in place.
func SortIDs(ids []snowflake.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
