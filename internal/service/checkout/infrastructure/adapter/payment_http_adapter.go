package adapter

import (
	"context"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/service/checkout/domain/port"
)

// PaymentHTTPAdapter 实现 port.PaymentService。
type PaymentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewPaymentHTTPAdapter(client *httpclient.Client, baseURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, baseURL: baseURL}
}

type createPaymentRequest struct {
	OrderRef         string `json:"orderId"`
	Amount           int64  `json:"amount"`
	OrderDescription string `json:"orderDescription"`
	BankCode         string `json:"bankCode,omitempty"`
	Language         string `json:"language,omitempty"`
	OrderType        string `json:"orderType,omitempty"`
}

type createPaymentResponse struct {
	URL string `json:"url"`
}

// CreatePayment 调用支付服务生成网关跳转 URL。
func (a *PaymentHTTPAdapter) CreatePayment(ctx context.Context, req port.PaymentRequest) (string, error) {
	var resp createPaymentResponse
	err := a.client.PostJSON(ctx, a.baseURL+"/api/create-payment", &createPaymentRequest{
		OrderRef:         req.OrderRef,
		Amount:           req.Amount,
		OrderDescription: req.OrderDescription,
		BankCode:         req.BankCode,
		Language:         req.Language,
		OrderType:        req.OrderType,
	}, &resp)
	if err != nil {
		return "", errors.Wrap(err, "create payment failed")
	}
	return resp.URL, nil
}
