package postgres

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/domain"
	"gorm.io/gorm"
)

type splitRuleRepository struct {
	db *gorm.DB
}

func (r *splitRuleRepository) Create(ctx context.Context, rule domain.SplitRule) error {
	rec := toSplitRuleModel(rule)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *splitRuleRepository) GetByID(ctx context.Context, ruleID string) (domain.SplitRule, error) {
	var rec splitRuleModel
	if err := r.db.WithContext(ctx).Where("rule_id = ?", ruleID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SplitRule{}, domain.ErrNotFound
		}
		return domain.SplitRule{}, err
	}
	return toDomainSplitRule(rec), nil
}

func (r *splitRuleRepository) FindForEntity(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.SplitRule, error) {
	if entityID == "" {
		return nil, nil
	}
	var rec splitRuleModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND is_active = true", string(entityType), entityID).
		Order("created_at asc").
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rule := toDomainSplitRule(rec)
	return &rule, nil
}

func (r *splitRuleRepository) FindDefault(ctx context.Context, entityType domain.EntityType) (*domain.SplitRule, error) {
	var rec splitRuleModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND is_default = true AND is_active = true", string(entityType)).
		Order("created_at asc").
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rule := toDomainSplitRule(rec)
	return &rule, nil
}

func (r *splitRuleRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]domain.SplitRule, int, error) {
	scope := r.db.WithContext(ctx).Model(&splitRuleModel{})
	if ownerID != "" {
		scope = scope.Where("owner_id = ?", ownerID)
	}
	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []splitRuleModel
	if err := scope.Order("created_at asc").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.SplitRule, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainSplitRule(row))
	}
	return out, int(total), nil
}
