package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"agrimart/internal/service/delivery/domain"
)

// DeliveryMethodModel 是 delivery_method 表的 GORM 模型。
type DeliveryMethodModel struct {
	gorm.Model
	Name           string `gorm:"size:128;not null"`
	BasePrice      int64  `gorm:"not null"`
	MinOrderAmount int64  `gorm:"not null;default:0"`
	Region         string `gorm:"size:32;not null;default:'any'"`
	Speed          string `gorm:"size:32;not null;default:'standard'"`
	IsActive       bool   `gorm:"not null;default:true"`
	IsDefault      bool   `gorm:"not null;default:false"`
}

func (DeliveryMethodModel) TableName() string {
	return "delivery_method"
}

// GormMethodRepository 是 MethodRepository 的 GORM 实现。
type GormMethodRepository struct {
	db *gorm.DB
}

func NewGormMethodRepository(db *gorm.DB) *GormMethodRepository {
	return &GormMethodRepository{db: db}
}

// List 返回全部配送方式，默认项排在最前。
func (r *GormMethodRepository) List(ctx context.Context) ([]*domain.DeliveryMethod, error) {
	var models []DeliveryMethodModel
	if err := r.db.WithContext(ctx).Order("is_default desc, base_price asc").Find(&models).Error; err != nil {
		return nil, err
	}
	methods := make([]*domain.DeliveryMethod, 0, len(models))
	for i := range models {
		methods = append(methods, toDomainMethod(&models[i]))
	}
	return methods, nil
}

// FindByID 按主键查找。
func (r *GormMethodRepository) FindByID(ctx context.Context, id int64) (*domain.DeliveryMethod, error) {
	var model DeliveryMethodModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMethodNotFound
		}
		return nil, err
	}
	return toDomainMethod(&model), nil
}

// Save 新建或更新配送方式。设为默认项时在同一事务内清掉旧默认。
func (r *GormMethodRepository) Save(ctx context.Context, method *domain.DeliveryMethod) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if method.IsDefault {
			if err := tx.Model(&DeliveryMethodModel{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}

		model := fromDomainMethod(method)
		if method.ID == 0 {
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			method.ID = int64(model.ID)
			return nil
		}

		model.ID = uint(method.ID)
		return tx.Model(&DeliveryMethodModel{}).Where("id = ?", method.ID).Updates(map[string]interface{}{
			"name":             method.Name,
			"base_price":       method.BasePrice,
			"min_order_amount": method.MinOrderAmount,
			"region":           string(method.Region),
			"speed":            string(method.Speed),
			"is_active":        method.IsActive,
			"is_default":       method.IsDefault,
		}).Error
	})
}

// Delete 删除配送方式。
func (r *GormMethodRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&DeliveryMethodModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrMethodNotFound
	}
	return nil
}

func toDomainMethod(m *DeliveryMethodModel) *domain.DeliveryMethod {
	return &domain.DeliveryMethod{
		ID:             int64(m.ID),
		Name:           m.Name,
		BasePrice:      m.BasePrice,
		MinOrderAmount: m.MinOrderAmount,
		Region:         domain.Region(m.Region),
		Speed:          domain.Speed(m.Speed),
		IsActive:       m.IsActive,
		IsDefault:      m.IsDefault,
	}
}

func fromDomainMethod(m *domain.DeliveryMethod) *DeliveryMethodModel {
	return &DeliveryMethodModel{
		Name:           m.Name,
		BasePrice:      m.BasePrice,
		MinOrderAmount: m.MinOrderAmount,
		Region:         string(m.Region),
		Speed:          string(m.Speed),
		IsActive:       m.IsActive,
		IsDefault:      m.IsDefault,
	}
}
