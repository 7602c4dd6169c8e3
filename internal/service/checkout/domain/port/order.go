package port

import (
	"context"

	"agrimart/internal/service/checkout/domain"
)

// OrderSubmission 是提交给订单服务的完整载荷：金额聚合 + 地址 + 购物车快照。
type OrderSubmission struct {
	IdempotencyKey      string
	UserID              string
	Items               []domain.CartLineItem
	Address             domain.Address
	DeliveryMethodID    int64
	PaymentMethod       string
	DiscountCode        string
	Totals              domain.OrderTotal
	ShippingUnconfirmed bool // 运费未确认时置位，订单转人工确认运费
}

// OrderService 是结算侧对订单服务的出站端口。
type OrderService interface {
	Submit(ctx context.Context, submission OrderSubmission) (orderID string, err error)
}
