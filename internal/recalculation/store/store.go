// Package store reads inventory and writes restriction rates through gorm.
package store

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
	"github.com/xhoantran/HotelMS-server/pkg/repository"
	"gorm.io/gorm"
)

type occupancySource struct{}

func NewOccupancySource() domain.OccupancySource {
	return &occupancySource{}
}

func (s *occupancySource) Load(ctx context.Context, db *gorm.DB, scope domain.Scope) (domain.OccupancyMap, error) {
	out := domain.OccupancyMap{}
	if len(scope.RoomTypeIDs) == 0 {
		return out, nil
	}

	var rows []domain.Occupancy
	err := db.WithContext(ctx).Raw(
		`SELECT room_type_id, date, booked
		 FROM room_type_occupancy
		 WHERE room_type_id IN ? AND date >= ? AND date <= ?`,
		scope.RoomTypeIDs, scope.From, scope.To,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	for _, r := range rows {
		out.Set(r.RoomTypeID, r.Date, r.Booked)
	}
	return out, nil
}

type restrictionStore struct{}

func NewRestrictionStore() domain.RestrictionStore {
	return &restrictionStore{}
}

func (s *restrictionStore) List(ctx context.Context, db *gorm.DB, scope domain.Scope) ([]domain.RestrictionRow, error) {
	if len(scope.RoomTypeIDs) == 0 {
		return nil, nil
	}

	var rows []domain.RestrictionRow
	err := db.WithContext(ctx).Raw(
		`SELECT r.id, r.rate_plan_id, rp.room_type_id, r.date, r.rate, r.base_rate
		 FROM rate_plan_restrictions r
		 JOIN rate_plans rp ON rp.id = r.rate_plan_id
		 WHERE rp.room_type_id IN ? AND r.date >= ? AND r.date <= ?
		 ORDER BY r.date ASC, r.rate_plan_id ASC`,
		scope.RoomTypeIDs, scope.From, scope.To,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list restrictions: %w", err)
	}
	return rows, nil
}

// Apply writes every change; callers run it inside a transaction.
func (s *restrictionStore) Apply(ctx context.Context, db *gorm.DB, changes []domain.Change) error {
	restrictions := repository.ProvideStore[domain.Restriction](db)
	for _, c := range changes {
		n, err := restrictions.Update(ctx, c.RestrictionID, map[string]any{
			"rate":      c.Rate,
			"base_rate": c.BaseRate,
		})
		if err != nil {
			return fmt.Errorf("update restriction %s: %w", c.RestrictionID, err)
		}
		if n == 0 {
			return fmt.Errorf("update restriction %s: %w", c.RestrictionID, gorm.ErrRecordNotFound)
		}
	}
	return nil
}

type ratePlanDirectory struct{}

func NewRatePlanDirectory() domain.RatePlanDirectory {
	return &ratePlanDirectory{}
}

func (d *ratePlanDirectory) RoomTypes(ctx context.Context, db *gorm.DB, settingID snowflake.ID) ([]snowflake.ID, error) {
	var raw []int64
	err := db.WithContext(ctx).Raw(
		`SELECT rt.id
		 FROM room_types rt
		 JOIN dynamic_pricing_settings s ON s.property_id = rt.property_id
		 WHERE s.id = ?
		 ORDER BY rt.id ASC`,
		settingID,
	).Scan(&raw).Error
	if err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, snowflake.ID(id))
	}
	return ids, nil
}

func (d *ratePlanDirectory) Synced(ctx context.Context, db *gorm.DB, roomTypeIDs []snowflake.ID) (map[snowflake.ID]domain.RatePlanRef, error) {
	out := make(map[snowflake.ID]domain.RatePlanRef)
	if len(roomTypeIDs) == 0 {
		return out, nil
	}

	var refs []domain.RatePlanRef
	err := db.WithContext(ctx).Raw(
		`SELECT id, room_type_id, external_id
		 FROM rate_plans
		 WHERE room_type_id IN ? AND external_id IS NOT NULL AND external_id <> ''`,
		roomTypeIDs,
	).Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("list synced rate plans: %w", err)
	}
	for _, ref := range refs {
		out[ref.ID] = ref
	}
	return out, nil
}

func (d *ratePlanDirectory) PropertyExternalID(ctx context.Context, db *gorm.DB, settingID snowflake.ID) (string, error) {
	var row struct {
		ExternalID *string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT p.external_id
		 FROM properties p
		 JOIN dynamic_pricing_settings s ON s.property_id = p.id
		 WHERE s.id = ?`,
		settingID,
	).Scan(&row).Error
	if err != nil {
		return "", fmt.Errorf("find property external id: %w", err)
	}
	if row.ExternalID == nil {
		return "", nil
	}
	return *row.ExternalID, nil
}
