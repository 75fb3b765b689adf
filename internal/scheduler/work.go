package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"gorm.io/gorm"
)

// fetchHandlesForWork pages through enabled trigger handles by id.
func (s *Scheduler) fetchHandlesForWork(ctx context.Context, afterID snowflake.ID, limit int) ([]pricingdomain.TriggerHandle, error) {
	var handles []pricingdomain.TriggerHandle
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, time_rule_id, setting_id, hour, minute, timezone, day_ahead, enabled, last_fired_on, created_at, updated_at
		 FROM time_rule_triggers
		 WHERE enabled = ? AND id > ?
		 ORDER BY id
		 LIMIT ?`,
		true,
		afterID,
		limit,
	).Scan(&handles).Error
	if err != nil {
		return nil, err
	}
	return handles, nil
}

// claimHandle marks the handle fired for the local day. It returns false when
// another instance already claimed it.
func (s *Scheduler) claimHandle(ctx context.Context, tx *gorm.DB, handleID snowflake.ID, day, now time.Time) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE time_rule_triggers
		 SET last_fired_on = ?, updated_at = ?
		 WHERE id = ? AND enabled = ? AND (last_fired_on IS NULL OR last_fired_on < ?)`,
		day, now, handleID, true, day,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// releaseClaim restores the previous fire date so the next run retries.
func (s *Scheduler) releaseClaim(ctx context.Context, handleID snowflake.ID, previous *time.Time) error {
	return s.db.WithContext(ctx).Exec(
		`UPDATE time_rule_triggers SET last_fired_on = ? WHERE id = ?`,
		previous, handleID,
	).Error
}
