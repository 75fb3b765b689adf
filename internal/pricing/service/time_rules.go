package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/pkg/db/option"
	"github.com/xhoantran/HotelMS-server/pkg/repository"
	"gorm.io/gorm"
)

func (s *Service) CreateTimeRule(ctx context.Context, settingID snowflake.ID, req domain.TimeRuleRequest) (*domain.TimeRule, error) {
	if err := validateTimeRule(req); err != nil {
		return nil, err
	}
	rule := &domain.TimeRule{
		SettingID:    settingID,
		Hour:         req.Hour,
		DayAhead:     req.DayAhead,
		MinOccupancy: req.MinOccupancy,
		MaxOccupancy: req.MaxOccupancy,
		IsActive:     req.IsActive,
		Factor:       req.Factor,
	}
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Time {
			return domain.ErrRuleNotEnabled
		}
		rule.ID = s.genID.Generate()
		if err := repository.ProvideStore[domain.TimeRule](tx).Create(ctx, rule); err != nil {
			return err
		}
		return s.syncHandle(ctx, tx, setting, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) UpdateTimeRule(ctx context.Context, settingID, ruleID snowflake.ID, req domain.TimeRuleRequest) (*domain.TimeRule, error) {
	if err := validateTimeRule(req); err != nil {
		return nil, err
	}
	var rule *domain.TimeRule
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Time {
			return domain.ErrRuleNotEnabled
		}
		rules := repository.ProvideStore[domain.TimeRule](tx)
		existing, err := findRule(ctx, rules, settingID, ruleID)
		if err != nil {
			return err
		}
		if _, err := rules.Update(ctx, ruleID, map[string]any{
			"hour":          req.Hour,
			"day_ahead":     req.DayAhead,
			"min_occupancy": req.MinOccupancy,
			"max_occupancy": req.MaxOccupancy,
			"is_active":     req.IsActive,
			"percentage":    req.Factor.Percentage,
			"increment":     req.Factor.Increment,
		}); err != nil {
			return err
		}
		existing.Hour = req.Hour
		existing.DayAhead = req.DayAhead
		existing.MinOccupancy = req.MinOccupancy
		existing.MaxOccupancy = req.MaxOccupancy
		existing.IsActive = req.IsActive
		existing.Factor = req.Factor
		rule = existing
		return s.syncHandle(ctx, tx, setting, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteTimeRule removes the rule together with its trigger handle.
func (s *Service) DeleteTimeRule(ctx context.Context, settingID, ruleID snowflake.ID) error {
	return s.write(ctx, settingID, func(tx *gorm.DB, _ *domain.Setting) error {
		rules := repository.ProvideStore[domain.TimeRule](tx)
		if _, err := findRule(ctx, rules, settingID, ruleID); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("time_rule_id = ?", ruleID).Delete(&domain.TriggerHandle{}).Error; err != nil {
			return err
		}
		_, err := rules.Delete(ctx, ruleID)
		return err
	})
}

func (s *Service) ListTriggerHandles(ctx context.Context, settingID snowflake.ID) ([]domain.TriggerHandle, error) {
	handles, err := repository.ProvideStore[domain.TriggerHandle](s.db).Find(ctx, &domain.TriggerHandle{},
		option.Where("setting_id = ?", settingID),
		option.OrderBy("day_ahead", false),
		option.OrderBy("hour", false),
		option.OrderBy("id", false),
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TriggerHandle, 0, len(handles))
	for _, h := range handles {
		out = append(out, *h)
	}
	return out, nil
}

// syncHandle mirrors rule into its trigger handle. The handle runs only while
// the rule is active and the setting prices by time.
func (s *Service) syncHandle(ctx context.Context, tx *gorm.DB, setting *domain.Setting, rule *domain.TimeRule) error {
	handles := repository.ProvideStore[domain.TriggerHandle](tx)
	handle, err := handles.FindOne(ctx, &domain.TriggerHandle{}, option.Where("time_rule_id = ?", rule.ID))
	if err != nil {
		return err
	}

	enabled := rule.IsActive && setting.Dimensions.Time && setting.Enabled
	now := s.clock.Now()
	if handle == nil {
		return handles.Create(ctx, &domain.TriggerHandle{
			ID:         s.genID.Generate(),
			TimeRuleID: rule.ID,
			SettingID:  setting.ID,
			Hour:       rule.Hour,
			Minute:     domain.TriggerMinuteEvery,
			Timezone:   setting.Timezone,
			DayAhead:   rule.DayAhead,
			Enabled:    enabled,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	changes := map[string]any{
		"hour":       rule.Hour,
		"minute":     domain.TriggerMinuteEvery,
		"timezone":   setting.Timezone,
		"day_ahead":  rule.DayAhead,
		"enabled":    enabled,
		"updated_at": now,
	}
	// A rescheduled handle may fire again today.
	if handle.Hour != rule.Hour || handle.DayAhead != rule.DayAhead || handle.Timezone != setting.Timezone {
		changes["last_fired_on"] = nil
	}
	_, err = handles.Update(ctx, handle.ID, changes)
	return err
}

func (s *Service) syncAllHandles(ctx context.Context, tx *gorm.DB, setting *domain.Setting) error {
	rules, err := repository.ProvideStore[domain.TimeRule](tx).Find(ctx, &domain.TimeRule{},
		option.Where("setting_id = ?", setting.ID),
	)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if err := s.syncHandle(ctx, tx, setting, rule); err != nil {
			return err
		}
	}
	return nil
}
