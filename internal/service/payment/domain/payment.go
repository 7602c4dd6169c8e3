package domain

import (
	"context"
	"errors"
	"time"
)

var ErrPaymentNotFound = errors.New("payment not found")

// Status 是支付记录状态。
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// Payment 是一次网关支付的记录。
type Payment struct {
	ID           int64
	OrderRef     string
	Amount       int64
	BankCode     string
	Status       Status
	GatewayTxnNo string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PaymentRepository 定义支付记录的持久化接口。
type PaymentRepository interface {
	Save(ctx context.Context, payment *Payment) error
	FindByOrderRef(ctx context.Context, orderRef string) (*Payment, error)
}
