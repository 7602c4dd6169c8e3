package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validDiscount() *DiscountCode {
	return &DiscountCode{
		Code:              "TET2026",
		DiscountPercent:   20,
		MaxDiscountAmount: 150000,
		MinOrderValue:     500000,
		ExpireDate:        time.Now().Add(24 * time.Hour),
		UsageLimit:        100,
		UsedCount:         10,
		IsActive:          true,
	}
}

func TestCheckApplicability(t *testing.T) {
	now := time.Now()

	t.Run("applicable", func(t *testing.T) {
		assert.NoError(t, validDiscount().CheckApplicability(500000, now))
	})

	t.Run("inactive", func(t *testing.T) {
		d := validDiscount()
		d.IsActive = false
		assert.ErrorIs(t, d.CheckApplicability(500000, now), ErrInactive)
	})

	t.Run("expired", func(t *testing.T) {
		d := validDiscount()
		d.ExpireDate = now.Add(-time.Hour)
		assert.ErrorIs(t, d.CheckApplicability(500000, now), ErrExpired)
	})

	t.Run("expires exactly now", func(t *testing.T) {
		d := validDiscount()
		d.ExpireDate = now
		assert.ErrorIs(t, d.CheckApplicability(500000, now), ErrExpired)
	})

	t.Run("usage exceeded", func(t *testing.T) {
		d := validDiscount()
		d.UsedCount = 100
		assert.ErrorIs(t, d.CheckApplicability(500000, now), ErrUsageExceeded)
	})

	t.Run("unlimited usage", func(t *testing.T) {
		d := validDiscount()
		d.UsageLimit = 0
		d.UsedCount = 999999
		assert.NoError(t, d.CheckApplicability(500000, now))
	})

	t.Run("just below minimum", func(t *testing.T) {
		assert.ErrorIs(t, validDiscount().CheckApplicability(499999, now), ErrBelowMinimum)
	})

	t.Run("exactly at minimum", func(t *testing.T) {
		// 门槛为闭区间下界
		assert.NoError(t, validDiscount().CheckApplicability(500000, now))
	})
}

// 失效原因按从具体到一般排序：停用优先于过期，过期优先于门槛。
func TestCheckApplicabilityOrdering(t *testing.T) {
	now := time.Now()
	d := validDiscount()
	d.IsActive = false
	d.ExpireDate = now.Add(-time.Hour)
	d.UsedCount = 100
	assert.ErrorIs(t, d.CheckApplicability(0, now), ErrInactive)

	d.IsActive = true
	assert.ErrorIs(t, d.CheckApplicability(0, now), ErrExpired)

	d.ExpireDate = now.Add(time.Hour)
	assert.ErrorIs(t, d.CheckApplicability(0, now), ErrUsageExceeded)

	d.UsedCount = 0
	assert.ErrorIs(t, d.CheckApplicability(0, now), ErrBelowMinimum)
}

func TestAmountFor(t *testing.T) {
	d := validDiscount()

	// 20% × 600000 = 120000，未到上限
	assert.Equal(t, int64(120000), d.AmountFor(600000))

	// 20% × 1000000 = 200000，封顶 150000
	assert.Equal(t, int64(150000), d.AmountFor(1000000))

	// 四舍五入到整 VND
	d.DiscountPercent = 15
	assert.Equal(t, int64(75000), d.AmountFor(500001)) // 75000.15 → 75000
}

func TestCanRedeem(t *testing.T) {
	d := validDiscount()
	assert.True(t, d.CanRedeem())

	d.UsedCount = 100
	assert.False(t, d.CanRedeem())

	d.UsageLimit = 0
	assert.True(t, d.CanRedeem())
}
