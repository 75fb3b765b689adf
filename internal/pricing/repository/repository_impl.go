package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/clock"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	clock clock.Clock
}

func Provide(db *gorm.DB, clk clock.Clock) pricingdomain.RuleRepository {
	return &repo{db: db, clock: clk}
}

// LoadSnapshot reads the setting and its enabled rule collections inside one
// read-only transaction so the result is consistent.
func (r *repo) LoadSnapshot(ctx context.Context, settingID snowflake.ID) (*pricingdomain.Snapshot, error) {
	snap := &pricingdomain.Snapshot{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setting, err := findSetting(ctx, tx, settingID)
		if err != nil {
			return err
		}
		snap.Setting = *setting
		return loadRules(ctx, tx, snap)
	}, snapshotTxOptions(r.db))
	if err != nil {
		return nil, err
	}

	snap.LoadedAt = r.clock.Now()
	if err := snap.Seal(); err != nil {
		return nil, fmt.Errorf("seal snapshot %s: %w", settingID, err)
	}
	return snap, nil
}

func snapshotTxOptions(db *gorm.DB) *sql.TxOptions {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func findSetting(ctx context.Context, db *gorm.DB, settingID snowflake.ID) (*pricingdomain.Setting, error) {
	var s pricingdomain.Setting
	err := db.WithContext(ctx).Raw(
		`SELECT id, property_id, enabled,
		 is_lead_days_based, is_weekday_based, is_month_based, is_season_based,
		 is_occupancy_based, is_time_based, is_rate_plan_based,
		 lead_day_window, default_base_rate, timezone, created_at, updated_at
		 FROM dynamic_pricing_settings WHERE id = ?`,
		settingID,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, fmt.Errorf("%w: %s", pricingdomain.ErrSettingNotFound, settingID)
	}
	return &s, nil
}

func loadRules(ctx context.Context, db *gorm.DB, snap *pricingdomain.Snapshot) error {
	id := snap.Setting.ID
	dims := snap.Setting.Dimensions
	db = db.WithContext(ctx)

	if dims.LeadDays {
		if err := db.Raw(
			`SELECT id, setting_id, lead_days, percentage, increment
			 FROM lead_days_rules WHERE setting_id = ? ORDER BY lead_days ASC`, id,
		).Scan(&snap.LeadDays).Error; err != nil {
			return fmt.Errorf("load lead days rules: %w", err)
		}
	}
	if dims.Weekday {
		if err := db.Raw(
			`SELECT id, setting_id, weekday, percentage, increment
			 FROM weekday_rules WHERE setting_id = ? ORDER BY weekday ASC`, id,
		).Scan(&snap.Weekdays).Error; err != nil {
			return fmt.Errorf("load weekday rules: %w", err)
		}
	}
	if dims.Month {
		if err := db.Raw(
			`SELECT id, setting_id, month, percentage, increment
			 FROM month_rules WHERE setting_id = ? ORDER BY month ASC`, id,
		).Scan(&snap.Months).Error; err != nil {
			return fmt.Errorf("load month rules: %w", err)
		}
	}
	if dims.Season {
		if err := db.Raw(
			`SELECT id, setting_id, name, start_month, start_day, end_month, end_day, percentage, increment
			 FROM season_rules WHERE setting_id = ? ORDER BY id ASC`, id,
		).Scan(&snap.Seasons).Error; err != nil {
			return fmt.Errorf("load season rules: %w", err)
		}
	}
	if dims.Occupancy {
		if err := db.Raw(
			`SELECT id, setting_id, min_occupancy, percentage, increment
			 FROM occupancy_rules WHERE setting_id = ? ORDER BY min_occupancy DESC`, id,
		).Scan(&snap.Occupancy).Error; err != nil {
			return fmt.Errorf("load occupancy rules: %w", err)
		}
	}
	if dims.Time {
		if err := db.Raw(
			`SELECT id, setting_id, hour, day_ahead, min_occupancy, max_occupancy, is_active, percentage, increment
			 FROM time_rules WHERE setting_id = ? AND is_active = ?
			 ORDER BY day_ahead ASC, hour DESC, min_occupancy DESC`, id, true,
		).Scan(&snap.TimeRules).Error; err != nil {
			return fmt.Errorf("load time rules: %w", err)
		}
	}
	if dims.RatePlan {
		if err := db.Raw(
			`SELECT id, setting_id, rate_plan_id, percentage
			 FROM rate_plan_factors WHERE setting_id = ? ORDER BY rate_plan_id ASC`, id,
		).Scan(&snap.RatePlans).Error; err != nil {
			return fmt.Errorf("load rate plan factors: %w", err)
		}
	}
	if err := db.Raw(
		`SELECT id, setting_id, start_date, end_date, base_rate
		 FROM interval_base_rates WHERE setting_id = ? ORDER BY start_date ASC`, id,
	).Scan(&snap.Intervals).Error; err != nil {
		return fmt.Errorf("load interval base rates: %w", err)
	}
	return nil
}
