package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/pkg/db/option"
	"github.com/xhoantran/HotelMS-server/pkg/repository"
	"gorm.io/gorm"
)

func (s *Service) CreateIntervalBaseRate(ctx context.Context, settingID snowflake.ID, req domain.IntervalBaseRateRequest) (*domain.IntervalBaseRate, error) {
	req, err := validateInterval(req)
	if err != nil {
		return nil, err
	}
	interval := &domain.IntervalBaseRate{
		SettingID: settingID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		BaseRate:  req.BaseRate,
	}
	err = s.write(ctx, settingID, func(tx *gorm.DB, _ *domain.Setting) error {
		if err := checkOverlap(ctx, tx, settingID, 0, req); err != nil {
			return err
		}
		interval.ID = s.genID.Generate()
		return repository.ProvideStore[domain.IntervalBaseRate](tx).Create(ctx, interval)
	})
	if err != nil {
		return nil, err
	}
	return interval, nil
}

func (s *Service) UpdateIntervalBaseRate(ctx context.Context, settingID, intervalID snowflake.ID, req domain.IntervalBaseRateRequest) (*domain.IntervalBaseRate, error) {
	req, err := validateInterval(req)
	if err != nil {
		return nil, err
	}
	var interval *domain.IntervalBaseRate
	err = s.write(ctx, settingID, func(tx *gorm.DB, _ *domain.Setting) error {
		intervals := repository.ProvideStore[domain.IntervalBaseRate](tx)
		existing, err := findRule(ctx, intervals, settingID, intervalID)
		if err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, settingID, intervalID, req); err != nil {
			return err
		}
		if _, err := intervals.Update(ctx, intervalID, map[string]any{
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
			"base_rate":  req.BaseRate,
		}); err != nil {
			return err
		}
		existing.StartDate, existing.EndDate, existing.BaseRate = req.StartDate, req.EndDate, req.BaseRate
		interval = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return interval, nil
}

func (s *Service) DeleteIntervalBaseRate(ctx context.Context, settingID, intervalID snowflake.ID) error {
	return deleteRule[domain.IntervalBaseRate](ctx, s, settingID, intervalID)
}

// checkOverlap rejects a range that shares a day with another interval of the
// setting. Postgres also enforces this with an exclusion constraint.
func checkOverlap(ctx context.Context, tx *gorm.DB, settingID, exceptID snowflake.ID, req domain.IntervalBaseRateRequest) error {
	n, err := repository.ProvideStore[domain.IntervalBaseRate](tx).Count(ctx, &domain.IntervalBaseRate{},
		option.Where("setting_id = ? AND id <> ? AND start_date <= ? AND end_date >= ?",
			settingID, exceptID, req.EndDate, req.StartDate),
	)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrOverlappingInterval
	}
	return nil
}
