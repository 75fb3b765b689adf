package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/pkg/db/option"
	"github.com/xhoantran/HotelMS-server/pkg/repository"
	"gorm.io/gorm"
)

func (s *Service) SetLeadDaysFactor(ctx context.Context, settingID snowflake.ID, leadDays int, factor domain.Factor) (*domain.LeadDaysRule, error) {
	if err := factor.ValidateSlot(); err != nil {
		return nil, err
	}
	var rule *domain.LeadDaysRule
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.LeadDays {
			return domain.ErrRuleNotEnabled
		}
		if leadDays < 0 || leadDays > setting.LeadDayWindow {
			return fmt.Errorf("%w: %d outside 0..%d", domain.ErrInvalidLeadDays, leadDays, setting.LeadDayWindow)
		}
		var err error
		rule, err = upsertSlot(ctx, tx, "lead_days", setting.ID, leadDays, factor,
			func() *domain.LeadDaysRule {
				return &domain.LeadDaysRule{ID: s.genID.Generate(), SettingID: setting.ID, LeadDays: leadDays, Factor: factor}
			},
			func(r *domain.LeadDaysRule) (snowflake.ID, *domain.Factor) { return r.ID, &r.Factor },
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) SetWeekdayFactor(ctx context.Context, settingID snowflake.ID, weekday int, factor domain.Factor) (*domain.WeekdayRule, error) {
	if weekday < 1 || weekday > 7 {
		return nil, domain.ErrInvalidWeekday
	}
	if err := factor.ValidateSlot(); err != nil {
		return nil, err
	}
	var rule *domain.WeekdayRule
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Weekday {
			return domain.ErrRuleNotEnabled
		}
		var err error
		rule, err = upsertSlot(ctx, tx, "weekday", setting.ID, weekday, factor,
			func() *domain.WeekdayRule {
				return &domain.WeekdayRule{ID: s.genID.Generate(), SettingID: setting.ID, Weekday: weekday, Factor: factor}
			},
			func(r *domain.WeekdayRule) (snowflake.ID, *domain.Factor) { return r.ID, &r.Factor },
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) SetMonthFactor(ctx context.Context, settingID snowflake.ID, month int, factor domain.Factor) (*domain.MonthRule, error) {
	if month < 1 || month > 12 {
		return nil, domain.ErrInvalidMonth
	}
	if err := factor.ValidateSlot(); err != nil {
		return nil, err
	}
	var rule *domain.MonthRule
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Month {
			return domain.ErrRuleNotEnabled
		}
		var err error
		rule, err = upsertSlot(ctx, tx, "month", setting.ID, month, factor,
			func() *domain.MonthRule {
				return &domain.MonthRule{ID: s.genID.Generate(), SettingID: setting.ID, Month: month, Factor: factor}
			},
			func(r *domain.MonthRule) (snowflake.ID, *domain.Factor) { return r.ID, &r.Factor },
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// SetRatePlanFactor stores the percentage of a rate plan, creating the row on
// first use.
func (s *Service) SetRatePlanFactor(ctx context.Context, settingID, ratePlanID snowflake.ID, percentage int) (*domain.RatePlanFactor, error) {
	if ratePlanID == 0 {
		return nil, fmt.Errorf("%w: rate plan id is required", domain.ErrInvalidInput)
	}
	if err := domain.Percentage(percentage).ValidateSlot(); err != nil {
		return nil, err
	}
	var rule *domain.RatePlanFactor
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.RatePlan {
			return domain.ErrRuleNotEnabled
		}
		if err := ownsRatePlan(ctx, tx, setting, ratePlanID); err != nil {
			return err
		}
		factors := repository.ProvideStore[domain.RatePlanFactor](tx)
		existing, err := factors.FindOne(ctx, &domain.RatePlanFactor{}, option.Where("rate_plan_id = ?", ratePlanID))
		if err != nil {
			return err
		}
		if existing == nil {
			rule = &domain.RatePlanFactor{
				ID:         s.genID.Generate(),
				SettingID:  setting.ID,
				RatePlanID: ratePlanID,
				Percentage: percentage,
			}
			return factors.Create(ctx, rule)
		}
		if existing.SettingID != setting.ID {
			return fmt.Errorf("%w: rate plan %s belongs to another setting", domain.ErrInvalidInput, ratePlanID)
		}
		if _, err := factors.Update(ctx, existing.ID, map[string]any{"percentage": percentage}); err != nil {
			return err
		}
		existing.Percentage = percentage
		rule = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// EnsureRatePlanFactor gives a rate plan of the setting's property a neutral
// factor unless it already has one, and returns the stored row. Callers that
// create rate plans use it so the next recalculation sees the plan.
func (s *Service) EnsureRatePlanFactor(ctx context.Context, settingID, ratePlanID snowflake.ID) (*domain.RatePlanFactor, error) {
	if ratePlanID == 0 {
		return nil, fmt.Errorf("%w: rate plan id is required", domain.ErrInvalidInput)
	}
	var rule *domain.RatePlanFactor
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if err := ownsRatePlan(ctx, tx, setting, ratePlanID); err != nil {
			return err
		}
		factors := repository.ProvideStore[domain.RatePlanFactor](tx)
		existing, err := factors.FindOne(ctx, &domain.RatePlanFactor{}, option.Where("rate_plan_id = ?", ratePlanID))
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.SettingID != setting.ID {
				return fmt.Errorf("%w: rate plan %s belongs to another setting", domain.ErrInvalidInput, ratePlanID)
			}
			rule = existing
			return nil
		}
		rule = &domain.RatePlanFactor{ID: s.genID.Generate(), SettingID: setting.ID, RatePlanID: ratePlanID}
		return factors.Create(ctx, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ownsRatePlan fails with ErrInvalidInput unless ratePlanID belongs to a room
// type of the setting's property.
func ownsRatePlan(ctx context.Context, tx *gorm.DB, setting *domain.Setting, ratePlanID snowflake.ID) error {
	var n int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM rate_plans rp
		 JOIN room_types rt ON rt.id = rp.room_type_id
		 WHERE rp.id = ? AND rt.property_id = ?`,
		ratePlanID, setting.PropertyID,
	).Scan(&n).Error
	if err != nil {
		return fmt.Errorf("check rate plan owner: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: rate plan %s is not a rate plan of property %s", domain.ErrInvalidInput, ratePlanID, setting.PropertyID)
	}
	return nil
}

// upsertSlot writes factor into the (setting, key) row of a fixed-slot table.
func upsertSlot[T any](
	ctx context.Context,
	tx *gorm.DB,
	column string,
	settingID snowflake.ID,
	key int,
	factor domain.Factor,
	build func() *T,
	fields func(*T) (snowflake.ID, *domain.Factor),
) (*T, error) {
	rows := repository.ProvideStore[T](tx)
	row, err := rows.FindOne(ctx, new(T), option.Where("setting_id = ? AND "+column+" = ?", settingID, key))
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = build()
		if err := rows.Create(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}

	id, f := fields(row)
	if _, err := rows.Update(ctx, id, map[string]any{
		"percentage": factor.Percentage,
		"increment":  factor.Increment,
	}); err != nil {
		return nil, err
	}
	*f = factor
	return row, nil
}

// ensureSlots creates the neutral rows a setting is missing.
func (s *Service) ensureSlots(ctx context.Context, tx *gorm.DB, setting *domain.Setting) error {
	if err := ensureKeys(ctx, tx, setting.ID, keyRange(0, setting.LeadDayWindow),
		func(r *domain.LeadDaysRule) int { return r.LeadDays },
		func(k int) *domain.LeadDaysRule {
			return &domain.LeadDaysRule{ID: s.genID.Generate(), SettingID: setting.ID, LeadDays: k}
		},
	); err != nil {
		return fmt.Errorf("ensure lead days rules: %w", err)
	}
	if err := ensureKeys(ctx, tx, setting.ID, keyRange(1, 7),
		func(r *domain.WeekdayRule) int { return r.Weekday },
		func(k int) *domain.WeekdayRule {
			return &domain.WeekdayRule{ID: s.genID.Generate(), SettingID: setting.ID, Weekday: k}
		},
	); err != nil {
		return fmt.Errorf("ensure weekday rules: %w", err)
	}
	if err := ensureKeys(ctx, tx, setting.ID, keyRange(1, 12),
		func(r *domain.MonthRule) int { return r.Month },
		func(k int) *domain.MonthRule {
			return &domain.MonthRule{ID: s.genID.Generate(), SettingID: setting.ID, Month: k}
		},
	); err != nil {
		return fmt.Errorf("ensure month rules: %w", err)
	}
	return nil
}

func ensureKeys[T any](ctx context.Context, tx *gorm.DB, settingID snowflake.ID, keys []int, keyOf func(*T) int, build func(int) *T) error {
	rows := repository.ProvideStore[T](tx)
	existing, err := rows.Find(ctx, new(T), option.Where("setting_id = ?", settingID))
	if err != nil {
		return err
	}
	have := make(map[int]struct{}, len(existing))
	for _, r := range existing {
		have[keyOf(r)] = struct{}{}
	}

	var missing []*T
	for _, k := range keys {
		if _, ok := have[k]; !ok {
			missing = append(missing, build(k))
		}
	}
	return rows.BatchCreate(ctx, missing)
}

func keyRange(from, to int) []int {
	keys := make([]int, 0, to-from+1)
	for k := from; k <= to; k++ {
		keys = append(keys, k)
	}
	return keys
}

// seedRatePlanFactors gives every existing rate plan of the property a neutral
// factor. Plans created later get theirs from a database trigger.
func seedRatePlanFactors(ctx context.Context, tx *gorm.DB, setting *domain.Setting) error {
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO rate_plan_factors (id, setting_id, rate_plan_id, percentage)
		 SELECT rp.id, ?, rp.id, 0
		 FROM rate_plans rp
		 JOIN room_types rt ON rt.id = rp.room_type_id
		 WHERE rt.property_id = ?
		 ON CONFLICT (rate_plan_id) DO NOTHING`,
		setting.ID, setting.PropertyID,
	).Error
	if err != nil {
		return fmt.Errorf("seed rate plan factors: %w", err)
	}
	return nil
}
