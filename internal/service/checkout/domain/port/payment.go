package port

import "context"

// PaymentRequest 是创建网关支付的请求。金额为整数 VND。
type PaymentRequest struct {
	OrderRef         string
	Amount           int64
	OrderDescription string
	BankCode         string
	Language         string
	OrderType        string
}

// PaymentService 是结算侧对支付服务的出站端口。
type PaymentService interface {
	// CreatePayment 返回浏览器应跳转到的网关 URL。
	CreatePayment(ctx context.Context, req PaymentRequest) (url string, err error)
}
