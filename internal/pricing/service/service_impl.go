package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/clock"
	"github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/pkg/db"
	"github.com/xhoantran/HotelMS-server/pkg/db/option"
	"github.com/xhoantran/HotelMS-server/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Invalidator domain.Invalidator
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	invalidator domain.Invalidator
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("pricing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		invalidator: p.Invalidator,
	}
}

// Provision creates the setting of a property with neutral rows for every
// fixed slot: lead days 0..window, the seven weekdays and the twelve months.
// The setting starts disabled.
func (s *Service) Provision(ctx context.Context, req domain.ProvisionRequest) (*domain.Setting, error) {
	if req.PropertyID == 0 {
		return nil, fmt.Errorf("%w: property id is required", domain.ErrInvalidInput)
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = domain.DefaultTimezone
	}
	if err := validateTimezone(tz); err != nil {
		return nil, err
	}
	window := domain.DefaultLeadDayWindow
	if req.LeadDayWindow != nil {
		window = *req.LeadDayWindow
	}
	if window < 0 {
		return nil, fmt.Errorf("%w: lead day window must not be negative", domain.ErrInvalidLeadDays)
	}
	if req.DefaultBaseRate < 0 {
		return nil, domain.ErrInvalidBaseRate
	}

	now := s.clock.Now()
	setting := &domain.Setting{
		ID:              s.genID.Generate(),
		PropertyID:      req.PropertyID,
		LeadDayWindow:   window,
		DefaultBaseRate: req.DefaultBaseRate,
		Timezone:        tz,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings := repository.ProvideStore[domain.Setting](tx)
		existing, err := settings.FindOne(ctx, &domain.Setting{}, option.Where("property_id = ?", req.PropertyID))
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrSettingExists
		}
		if err := settings.Create(ctx, setting); err != nil {
			return err
		}
		if err := s.ensureSlots(ctx, tx, setting); err != nil {
			return err
		}
		return seedRatePlanFactors(ctx, tx, setting)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSettingExists
		}
		return nil, err
	}

	s.log.Info("pricing setting provisioned",
		zap.String("setting_id", setting.ID.String()),
		zap.String("property_id", setting.PropertyID.String()),
		zap.Int("lead_day_window", window),
	)
	return setting, nil
}

func (s *Service) GetSetting(ctx context.Context, settingID snowflake.ID) (*domain.Setting, error) {
	return findSetting(ctx, s.db, option.Where("id = ?", settingID))
}

func (s *Service) GetSettingByProperty(ctx context.Context, propertyID snowflake.ID) (*domain.Setting, error) {
	return findSetting(ctx, s.db, option.Where("property_id = ?", propertyID))
}

// UpdateSetting applies the non-nil fields, adds slot rows a larger window
// needs and re-syncs every trigger handle of the setting.
func (s *Service) UpdateSetting(ctx context.Context, settingID snowflake.ID, req domain.UpdateSettingRequest) (*domain.Setting, error) {
	var updated *domain.Setting
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		next := *setting
		if req.Enabled != nil {
			next.Enabled = *req.Enabled
		}
		if req.Dimensions != nil {
			next.Dimensions = *req.Dimensions
		}
		if req.LeadDayWindow != nil {
			next.LeadDayWindow = *req.LeadDayWindow
		}
		if req.DefaultBaseRate != nil {
			next.DefaultBaseRate = *req.DefaultBaseRate
		}
		if req.Timezone != nil {
			next.Timezone = strings.TrimSpace(*req.Timezone)
		}
		if err := validateSetting(next); err != nil {
			return err
		}

		next.UpdatedAt = s.clock.Now()
		_, err := repository.ProvideStore[domain.Setting](tx).Update(ctx, settingID, map[string]any{
			"enabled":            next.Enabled,
			"is_lead_days_based": next.Dimensions.LeadDays,
			"is_weekday_based":   next.Dimensions.Weekday,
			"is_month_based":     next.Dimensions.Month,
			"is_season_based":    next.Dimensions.Season,
			"is_occupancy_based": next.Dimensions.Occupancy,
			"is_time_based":      next.Dimensions.Time,
			"is_rate_plan_based": next.Dimensions.RatePlan,
			"lead_day_window":    next.LeadDayWindow,
			"default_base_rate":  next.DefaultBaseRate,
			"timezone":           next.Timezone,
			"updated_at":         next.UpdatedAt,
		})
		if err != nil {
			return err
		}
		if err := s.ensureSlots(ctx, tx, &next); err != nil {
			return err
		}
		if err := s.syncAllHandles(ctx, tx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// write runs fn in a transaction with the setting loaded and invalidates the
// cached snapshot once the transaction committed.
func (s *Service) write(ctx context.Context, settingID snowflake.ID, fn func(tx *gorm.DB, setting *domain.Setting) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setting, err := findSetting(ctx, tx, option.Where("id = ?", settingID), option.ForUpdate())
		if err != nil {
			return err
		}
		return fn(tx, setting)
	})
	if err != nil {
		return mapWriteErr(err)
	}

	if err := s.invalidator.Invalidate(ctx, settingID); err != nil {
		s.log.Error("invalidate pricing snapshot failed",
			zap.String("setting_id", settingID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func findSetting(ctx context.Context, conn *gorm.DB, opts ...option.QueryOption) (*domain.Setting, error) {
	setting, err := repository.ProvideStore[domain.Setting](conn).FindOne(ctx, &domain.Setting{}, opts...)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, domain.ErrSettingNotFound
	}
	return setting, nil
}

func mapWriteErr(err error) error {
	switch {
	case db.IsExclusionViolation(err):
		return fmt.Errorf("%w: %v", domain.ErrOverlappingInterval, err)
	case db.IsDuplicateKeyErr(err):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateRule, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrRuleNotFound
	default:
		return err
	}
}
