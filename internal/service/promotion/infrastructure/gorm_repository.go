package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"agrimart/internal/service/promotion/domain"
)

// GormDiscountRepository 是 DiscountRepository 的 GORM 实现。
type GormDiscountRepository struct {
	db *gorm.DB
}

// NewGormDiscountRepository 创建一个新的 GORM 仓储实例。
func NewGormDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// FindByCode 按码查找优惠码。
func (r *GormDiscountRepository) FindByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	var model DiscountModel
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDiscountNotFound
		}
		return nil, err
	}
	return ToDomainDiscount(&model), nil
}

// Save 新建或更新优惠码（按 code 幂等）。
func (r *GormDiscountRepository) Save(ctx context.Context, discount *domain.DiscountCode) error {
	var existing DiscountModel
	err := r.db.WithContext(ctx).Where("code = ?", discount.Code).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(FromDomainDiscount(discount)).Error
	}
	if err != nil {
		return err
	}

	updateData := map[string]interface{}{
		"description":         discount.Description,
		"discount_percent":    discount.DiscountPercent,
		"max_discount_amount": discount.MaxDiscountAmount,
		"min_order_value":     discount.MinOrderValue,
		"expire_date":         discount.ExpireDate,
		"usage_limit":         discount.UsageLimit,
		"is_active":           discount.IsActive,
		"eligibility_rule":    discount.EligibilityRule,
	}
	return r.db.WithContext(ctx).Model(&DiscountModel{}).Where("id = ?", existing.ID).Updates(updateData).Error
}

// List 返回全部优惠码。
func (r *GormDiscountRepository) List(ctx context.Context) ([]*domain.DiscountCode, error) {
	var models []DiscountModel
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}
	discounts := make([]*domain.DiscountCode, 0, len(models))
	for i := range models {
		discounts = append(discounts, ToDomainDiscount(&models[i]))
	}
	return discounts, nil
}

// IncrementUsage 原子加一 usedCount。
func (r *GormDiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).Model(&DiscountModel{}).
		Where("code = ?", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDiscountNotFound
	}
	return nil
}
