package infrastructure

import (
	"agrimart/internal/service/promotion/domain"
)

// ToDomainDiscount 把数据库模型转换为领域模型。
func ToDomainDiscount(m *DiscountModel) *domain.DiscountCode {
	return &domain.DiscountCode{
		Code:              m.Code,
		Description:       m.Description,
		DiscountPercent:   m.DiscountPercent,
		MaxDiscountAmount: m.MaxDiscountAmount,
		MinOrderValue:     m.MinOrderValue,
		ExpireDate:        m.ExpireDate,
		UsageLimit:        m.UsageLimit,
		UsedCount:         m.UsedCount,
		IsActive:          m.IsActive,
		EligibilityRule:   m.EligibilityRule,
	}
}

// FromDomainDiscount 把领域模型转换为数据库模型。
func FromDomainDiscount(d *domain.DiscountCode) *DiscountModel {
	return &DiscountModel{
		Code:              d.Code,
		Description:       d.Description,
		DiscountPercent:   d.DiscountPercent,
		MaxDiscountAmount: d.MaxDiscountAmount,
		MinOrderValue:     d.MinOrderValue,
		ExpireDate:        d.ExpireDate,
		UsageLimit:        d.UsageLimit,
		UsedCount:         d.UsedCount,
		IsActive:          d.IsActive,
		EligibilityRule:   d.EligibilityRule,
	}
}
