package domain

import (
	"errors"
	"math"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidDiscount = errors.New("line discount percent must be within [0,100]")
	ErrItemNotFound    = errors.New("item not found in cart")
)

// CartLineItem 代表购物车中的一个商品行。
// 金额一律以整数 VND 表示，越南盾没有辅币单位。
type CartLineItem struct {
	ProductID           int64   `json:"productId"`
	Name                string  `json:"name"`
	UnitPrice           int64   `json:"unitPrice"` // 原价
	SalePrice           int64   `json:"salePrice"` // 特价，0 表示无特价
	Quantity            int     `json:"quantity"`
	LineDiscountPercent float64 `json:"lineDiscountPercent"` // 行级折扣 0-100
}

// Validate 在变更边界上校验商品行，非法数量/价格不允许进入购物车。
func (i CartLineItem) Validate() error {
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.UnitPrice < 0 || i.SalePrice < 0 {
		return ErrInvalidPrice
	}
	if i.LineDiscountPercent < 0 || i.LineDiscountPercent > 100 {
		return ErrInvalidDiscount
	}
	return nil
}

// EffectiveUnitPrice 返回生效单价：有特价时取特价，否则取原价。
func (i CartLineItem) EffectiveUnitPrice() int64 {
	if i.SalePrice > 0 {
		return i.SalePrice
	}
	return i.UnitPrice
}

// LineTotal 计算行小计：生效单价 × 数量 × (1 − 行折扣/100)，四舍五入到整 VND。
func (i CartLineItem) LineTotal() int64 {
	raw := float64(i.EffectiveUnitPrice()) * float64(i.Quantity) * (1 - i.LineDiscountPercent/100)
	return int64(math.Round(raw))
}

// Subtotal 把商品行列表归约为小计。空列表返回 0。纯函数。
func Subtotal(items []CartLineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}
