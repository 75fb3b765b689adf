package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/pkg/db/option"
	"github.com/xhoantran/HotelMS-server/pkg/repository"
	"gorm.io/gorm"
)

func (s *Service) CreateSeasonRule(ctx context.Context, settingID snowflake.ID, req domain.SeasonRuleRequest) (*domain.SeasonRule, error) {
	req, err := validateSeason(req)
	if err != nil {
		return nil, err
	}
	rule := &domain.SeasonRule{
		SettingID:  settingID,
		Name:       req.Name,
		StartMonth: req.StartMonth,
		StartDay:   req.StartDay,
		EndMonth:   req.EndMonth,
		EndDay:     req.EndDay,
		Factor:     req.Factor,
	}
	err = s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Season {
			return domain.ErrRuleNotEnabled
		}
		rule.ID = s.genID.Generate()
		return repository.ProvideStore[domain.SeasonRule](tx).Create(ctx, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) UpdateSeasonRule(ctx context.Context, settingID, ruleID snowflake.ID, req domain.SeasonRuleRequest) (*domain.SeasonRule, error) {
	req, err := validateSeason(req)
	if err != nil {
		return nil, err
	}
	var rule *domain.SeasonRule
	err = s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Season {
			return domain.ErrRuleNotEnabled
		}
		rules := repository.ProvideStore[domain.SeasonRule](tx)
		existing, err := findRule(ctx, rules, settingID, ruleID)
		if err != nil {
			return err
		}
		if _, err := rules.Update(ctx, ruleID, map[string]any{
			"name":        req.Name,
			"start_month": req.StartMonth,
			"start_day":   req.StartDay,
			"end_month":   req.EndMonth,
			"end_day":     req.EndDay,
			"percentage":  req.Factor.Percentage,
			"increment":   req.Factor.Increment,
		}); err != nil {
			return err
		}
		existing.Name = req.Name
		existing.StartMonth, existing.StartDay = req.StartMonth, req.StartDay
		existing.EndMonth, existing.EndDay = req.EndMonth, req.EndDay
		existing.Factor = req.Factor
		rule = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteSeasonRule(ctx context.Context, settingID, ruleID snowflake.ID) error {
	return deleteRule[domain.SeasonRule](ctx, s, settingID, ruleID)
}

func (s *Service) CreateOccupancyRule(ctx context.Context, settingID snowflake.ID, req domain.OccupancyRuleRequest) (*domain.OccupancyRule, error) {
	if err := validateOccupancy(req); err != nil {
		return nil, err
	}
	rule := &domain.OccupancyRule{
		SettingID:    settingID,
		MinOccupancy: req.MinOccupancy,
		Factor:       req.Factor,
	}
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Occupancy {
			return domain.ErrRuleNotEnabled
		}
		rule.ID = s.genID.Generate()
		return repository.ProvideStore[domain.OccupancyRule](tx).Create(ctx, rule)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) UpdateOccupancyRule(ctx context.Context, settingID, ruleID snowflake.ID, req domain.OccupancyRuleRequest) (*domain.OccupancyRule, error) {
	if err := validateOccupancy(req); err != nil {
		return nil, err
	}
	var rule *domain.OccupancyRule
	err := s.write(ctx, settingID, func(tx *gorm.DB, setting *domain.Setting) error {
		if !setting.Dimensions.Occupancy {
			return domain.ErrRuleNotEnabled
		}
		rules := repository.ProvideStore[domain.OccupancyRule](tx)
		existing, err := findRule(ctx, rules, settingID, ruleID)
		if err != nil {
			return err
		}
		if _, err := rules.Update(ctx, ruleID, map[string]any{
			"min_occupancy": req.MinOccupancy,
			"percentage":    req.Factor.Percentage,
			"increment":     req.Factor.Increment,
		}); err != nil {
			return err
		}
		existing.MinOccupancy = req.MinOccupancy
		existing.Factor = req.Factor
		rule = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) DeleteOccupancyRule(ctx context.Context, settingID, ruleID snowflake.ID) error {
	return deleteRule[domain.OccupancyRule](ctx, s, settingID, ruleID)
}

// findRule loads a rule and checks it belongs to the setting.
func findRule[T any](ctx context.Context, rules repository.Repository[T], settingID, ruleID snowflake.ID) (*T, error) {
	rule, err := rules.FindOne(ctx, new(T), option.Where("id = ? AND setting_id = ?", ruleID, settingID))
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func deleteRule[T any](ctx context.Context, s *Service, settingID, ruleID snowflake.ID) error {
	return s.write(ctx, settingID, func(tx *gorm.DB, _ *domain.Setting) error {
		rules := repository.ProvideStore[T](tx)
		if _, err := findRule(ctx, rules, settingID, ruleID); err != nil {
			return err
		}
		_, err := rules.Delete(ctx, ruleID)
		return err
	})
}
