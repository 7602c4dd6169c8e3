package application

import "agrimart/internal/service/order/domain"

// CreateOrderRequest 是结算服务提交的下单载荷。
type CreateOrderRequest struct {
	IdempotencyKey      string                 `json:"idempotencyKey"`
	UserID              string                 `json:"userId"`
	Items               []domain.OrderItem     `json:"items"`
	Address             domain.ShippingAddress `json:"address"`
	DeliveryMethodID    int64                  `json:"deliveryMethodId"`
	PaymentMethod       string                 `json:"paymentMethod"`
	DiscountCode        string                 `json:"discountCode"`
	Subtotal            int64                  `json:"subtotal"`
	DiscountAmount      int64                  `json:"discountAmount"`
	DeliveryFee         int64                  `json:"deliveryFee"`
	Total               int64                  `json:"total"`
	ShippingUnconfirmed bool                   `json:"shippingUnconfirmed"`
}

// CreateOrderResponse 返回订单号。重复提交返回首次建立的订单号。
type CreateOrderResponse struct {
	OrderID string `json:"orderId"`
}

// OrderView 是订单详情的对外表示。
type OrderView struct {
	OrderID             string                 `json:"orderId"`
	UserID              string                 `json:"userId"`
	Items               []domain.OrderItem     `json:"items"`
	Address             domain.ShippingAddress `json:"address"`
	DeliveryMethodID    int64                  `json:"deliveryMethodId"`
	PaymentMethod       string                 `json:"paymentMethod"`
	DiscountCode        string                 `json:"discountCode,omitempty"`
	Subtotal            int64                  `json:"subtotal"`
	DiscountAmount      int64                  `json:"discountAmount"`
	DeliveryFee         int64                  `json:"deliveryFee"`
	Total               int64                  `json:"total"`
	ShippingUnconfirmed bool                   `json:"shippingUnconfirmed"`
	State               string                 `json:"state"`
	CreatedAt           int64                  `json:"createdAt"`
}

// PaymentResultRequest 是支付回调通知的载荷。
type PaymentResultRequest struct {
	OrderID string `json:"orderId"`
	Success bool   `json:"success"`
}

func toOrderView(o *domain.Order) *OrderView {
	return &OrderView{
		OrderID:             o.ID,
		UserID:              o.UserID,
		Items:               o.Items,
		Address:             o.Address,
		DeliveryMethodID:    o.DeliveryMethodID,
		PaymentMethod:       o.PaymentMethod,
		DiscountCode:        o.DiscountCode,
		Subtotal:            o.Subtotal,
		DiscountAmount:      o.DiscountAmount,
		DeliveryFee:         o.DeliveryFee,
		Total:               o.Total,
		ShippingUnconfirmed: o.ShippingUnconfirmed,
		State:               string(o.State),
		CreatedAt:           o.CreatedAt.Unix(),
	}
}
