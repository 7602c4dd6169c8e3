package application

import (
	"time"

	"agrimart/internal/service/promotion/domain"
)

// ValidateRequest 是优惠码校验用例的输入。
type ValidateRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

// ValidateResponse 是校验结果。不可用时 Valid=false 且 Reason 给出具体原因码，
// 响应形态固定，调用方无需分支解析。
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}

// RedeemRequest 在订单确认时核销优惠码。
type RedeemRequest struct {
	Code    string `json:"code"`
	OrderID string `json:"orderId"`
}

// DiscountView 是优惠码的对外视图（归一化的扁平结构）。
type DiscountView struct {
	Code              string    `json:"discountId"`
	Description       string    `json:"description,omitempty"`
	DiscountPercent   float64   `json:"discountPercent"`
	MaxDiscountAmount int64     `json:"maxDiscountAmount"`
	MinOrderValue     int64     `json:"minOrderValue"`
	ExpireDate        time.Time `json:"expireDate"`
	UsageLimit        int64     `json:"usageLimit,omitempty"`
	UsedCount         int64     `json:"usedCount"`
	IsActive          bool      `json:"isActive"`
}

// CreateDiscountRequest 是后台创建优惠码的输入。
type CreateDiscountRequest struct {
	Code              string    `json:"discountId"`
	Description       string    `json:"description"`
	DiscountPercent   float64   `json:"discountPercent"`
	MaxDiscountAmount int64     `json:"maxDiscountAmount"`
	MinOrderValue     int64     `json:"minOrderValue"`
	ExpireDate        time.Time `json:"expireDate"`
	UsageLimit        int64     `json:"usageLimit"`
	EligibilityRule   string    `json:"eligibilityRule,omitempty"`
}

func toDiscountView(d *domain.DiscountCode) *DiscountView {
	return &DiscountView{
		Code:              d.Code,
		Description:       d.Description,
		DiscountPercent:   d.DiscountPercent,
		MaxDiscountAmount: d.MaxDiscountAmount,
		MinOrderValue:     d.MinOrderValue,
		ExpireDate:        d.ExpireDate,
		UsageLimit:        d.UsageLimit,
		UsedCount:         d.UsedCount,
		IsActive:          d.IsActive,
	}
}
