package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		eventType string
		wantTitle string
		wantOK    bool
	}{
		{"order.created", "Đặt hàng thành công", true},
		{"order.paid", "Thanh toán thành công", true},
		{"order.cancelled", "Đơn hàng đã hủy", true},
		{"order.failed", "Thanh toán thất bại", true},
		{"order.shipped", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			title, body, ok := render(&orderEvent{Type: tt.eventType, OrderID: "AGM-1"})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTitle, title)
			if ok {
				assert.Contains(t, body, "AGM-1")
			}
		})
	}
}
