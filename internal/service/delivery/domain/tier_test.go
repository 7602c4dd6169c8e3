package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFee(t *testing.T) {
	tests := []struct {
		distanceKm float64
		want       int64
	}{
		{0, 0},
		{9.9, 0},
		{10, 30000}, // 恰好 10 公里落入收费档
		{25, 30000},
		{49.9, 30000},
		{50, 50000},
		{99.9, 50000},
		{100, 70000},
		{150, 70000},
		{1200, 70000},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.1fkm", tt.distanceKm), func(t *testing.T) {
			assert.Equal(t, tt.want, TierFee(tt.distanceKm))
		})
	}
}
