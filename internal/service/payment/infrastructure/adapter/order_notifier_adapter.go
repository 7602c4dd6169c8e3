package adapter

import (
	"context"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/httpclient"
)

// OrderNotifierAdapter 实现 application.OrderNotifier。
type OrderNotifierAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewOrderNotifierAdapter(client *httpclient.Client, baseURL string) *OrderNotifierAdapter {
	return &OrderNotifierAdapter{client: client, baseURL: baseURL}
}

type paymentResultRequest struct {
	OrderID string `json:"orderId"`
	Success bool   `json:"success"`
}

// NotifyPaymentResult 把支付结果回传订单服务。
func (a *OrderNotifierAdapter) NotifyPaymentResult(ctx context.Context, orderRef string, success bool) error {
	req := &paymentResultRequest{OrderID: orderRef, Success: success}
	if err := a.client.PostJSON(ctx, a.baseURL+"/api/order/payment-result", req, nil); err != nil {
		return errors.Wrap(err, "order payment-result notification failed")
	}
	return nil
}
