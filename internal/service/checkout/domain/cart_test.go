package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartLineItemValidate(t *testing.T) {
	tests := []struct {
		name string
		item CartLineItem
		want error
	}{
		{"valid", CartLineItem{ProductID: 1, UnitPrice: 10000, Quantity: 1}, nil},
		{"zero quantity", CartLineItem{ProductID: 1, UnitPrice: 10000, Quantity: 0}, ErrInvalidQuantity},
		{"negative quantity", CartLineItem{ProductID: 1, UnitPrice: 10000, Quantity: -2}, ErrInvalidQuantity},
		{"negative price", CartLineItem{ProductID: 1, UnitPrice: -1, Quantity: 1}, ErrInvalidPrice},
		{"negative sale price", CartLineItem{ProductID: 1, UnitPrice: 10000, SalePrice: -5, Quantity: 1}, ErrInvalidPrice},
		{"discount over 100", CartLineItem{ProductID: 1, UnitPrice: 10000, Quantity: 1, LineDiscountPercent: 101}, ErrInvalidDiscount},
		{"negative discount", CartLineItem{ProductID: 1, UnitPrice: 10000, Quantity: 1, LineDiscountPercent: -1}, ErrInvalidDiscount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.item.Validate(), tt.want)
		})
	}
}

func TestEffectiveUnitPrice(t *testing.T) {
	assert.Equal(t, int64(35000), CartLineItem{UnitPrice: 40000, SalePrice: 35000}.EffectiveUnitPrice())
	assert.Equal(t, int64(40000), CartLineItem{UnitPrice: 40000}.EffectiveUnitPrice())
}

func TestLineTotalRounding(t *testing.T) {
	// 33333 × 0.9 = 29999.7，四舍五入到整 VND
	item := CartLineItem{UnitPrice: 33333, Quantity: 1, LineDiscountPercent: 10}
	assert.Equal(t, int64(30000), item.LineTotal())
}

func TestSubtotal(t *testing.T) {
	items := []CartLineItem{
		{ProductID: 1, Name: "Gạo ST25 5kg", UnitPrice: 50000, Quantity: 2},
		{ProductID: 2, Name: "Xoài cát Hòa Lộc 1kg", UnitPrice: 40000, SalePrice: 35000, Quantity: 3},
	}
	require.Equal(t, int64(205000), Subtotal(items))

	// 纯函数，重复计算结果一致
	require.Equal(t, int64(205000), Subtotal(items))
	assert.Equal(t, int64(0), Subtotal(nil))
}
