package domain

import (
	"errors"
	"math"
	"time"
)

var (
	ErrDiscountNotFound = errors.New("discount code not found")
	ErrInactive         = errors.New("discount code is inactive")
	ErrExpired          = errors.New("discount code has expired")
	ErrUsageExceeded    = errors.New("discount code usage limit reached")
	ErrBelowMinimum     = errors.New("order value below discount minimum")
	ErrNotEligible      = errors.New("order does not satisfy discount rule")
)

// DiscountCode 是一张优惠码的领域实体。
// 金额为整数 VND，percent 为 0-100。
type DiscountCode struct {
	Code              string
	Description       string
	DiscountPercent   float64
	MaxDiscountAmount int64
	MinOrderValue     int64
	ExpireDate        time.Time
	UsageLimit        int64 // 0 表示不限次数
	UsedCount         int64
	IsActive          bool

	// 可选的 CEL 资格规则，例如 "subtotal >= 500000 && region != 'island'"。
	// 为空时不做额外限制。由基础设施层的规则引擎求值。
	EligibilityRule string
}

// CheckApplicability 按从具体到一般的顺序校验优惠码对订单小计是否可用，
// 返回第一个不满足的原因。小计门槛为闭区间下界（>= 即满足）。
func (d *DiscountCode) CheckApplicability(subtotal int64, now time.Time) error {
	if !d.IsActive {
		return ErrInactive
	}
	if !now.Before(d.ExpireDate) {
		return ErrExpired
	}
	if d.UsageLimit > 0 && d.UsedCount >= d.UsageLimit {
		return ErrUsageExceeded
	}
	if subtotal < d.MinOrderValue {
		return ErrBelowMinimum
	}
	return nil
}

// AmountFor 计算套用金额：min(percent/100 × subtotal, maxDiscountAmount)，
// 四舍五入到整 VND。必须先通过 CheckApplicability。
func (d *DiscountCode) AmountFor(subtotal int64) int64 {
	amount := int64(math.Round(d.DiscountPercent / 100 * float64(subtotal)))
	if d.MaxDiscountAmount > 0 && amount > d.MaxDiscountAmount {
		amount = d.MaxDiscountAmount
	}
	return amount
}

// CanRedeem 判断核销前提：仍有剩余次数。
func (d *DiscountCode) CanRedeem() bool {
	return d.UsageLimit == 0 || d.UsedCount < d.UsageLimit
}
