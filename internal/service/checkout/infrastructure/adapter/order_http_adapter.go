package adapter

import (
	"context"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/service/checkout/domain"
	"agrimart/internal/service/checkout/domain/port"
)

// OrderHTTPAdapter 实现 port.OrderService。
type OrderHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewOrderHTTPAdapter(client *httpclient.Client, baseURL string) *OrderHTTPAdapter {
	return &OrderHTTPAdapter{client: client, baseURL: baseURL}
}

type submitOrderRequest struct {
	IdempotencyKey      string                `json:"idempotencyKey"`
	UserID              string                `json:"userId"`
	Items               []domain.CartLineItem `json:"items"`
	Address             domain.Address        `json:"address"`
	DeliveryMethodID    int64                 `json:"deliveryMethodId"`
	PaymentMethod       string                `json:"paymentMethod"`
	DiscountCode        string                `json:"discountCode,omitempty"`
	Subtotal            int64                 `json:"subtotal"`
	DiscountAmount      int64                 `json:"discountAmount"`
	DeliveryFee         int64                 `json:"deliveryFee"`
	Total               int64                 `json:"total"`
	ShippingUnconfirmed bool                  `json:"shippingUnconfirmed"`
}

type submitOrderResponse struct {
	OrderID string `json:"orderId"`
}

// Submit 向订单服务提交订单，幂等键随载荷传递。
func (a *OrderHTTPAdapter) Submit(ctx context.Context, sub port.OrderSubmission) (string, error) {
	req := &submitOrderRequest{
		IdempotencyKey:      sub.IdempotencyKey,
		UserID:              sub.UserID,
		Items:               sub.Items,
		Address:             sub.Address,
		DeliveryMethodID:    sub.DeliveryMethodID,
		PaymentMethod:       sub.PaymentMethod,
		DiscountCode:        sub.DiscountCode,
		Subtotal:            sub.Totals.Subtotal,
		DiscountAmount:      sub.Totals.DiscountAmount,
		DeliveryFee:         sub.Totals.DeliveryFee,
		Total:               sub.Totals.Total,
		ShippingUnconfirmed: sub.ShippingUnconfirmed,
	}

	var resp submitOrderResponse
	if err := a.client.PostJSON(ctx, a.baseURL+"/api/order", req, &resp); err != nil {
		return "", errors.Wrap(err, "order submission failed")
	}
	return resp.OrderID, nil
}
