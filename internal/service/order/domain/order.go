package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStateChange 表示订单状态机不允许此迁移。
	ErrInvalidStateChange = errors.New("invalid order state change")
)

// State 是订单生命周期状态。
type State string

const (
	StateCreated        State = "CREATED"
	StatePendingPayment State = "PENDING_PAYMENT"
	StatePaid           State = "PAID"
	StateCancelled      State = "CANCELLED"
	StateFailed         State = "FAILED"
)

// OrderItem 是下单时刻的商品快照，后续改价不影响已建订单。
type OrderItem struct {
	ProductID           int64   `json:"productId"`
	Name                string  `json:"name"`
	UnitPrice           int64   `json:"unitPrice"`
	SalePrice           int64   `json:"salePrice"`
	Quantity            int     `json:"quantity"`
	LineDiscountPercent float64 `json:"lineDiscountPercent"`
}

// ShippingAddress 是下单时刻的收货地址快照。
type ShippingAddress struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Province string `json:"province"`
	District string `json:"district"`
	Ward     string `json:"ward"`
	Street   string `json:"street"`
}

// Order 是订单聚合根。
type Order struct {
	ID               string
	IdempotencyKey   string
	UserID           string
	Items            []OrderItem
	Address          ShippingAddress
	DeliveryMethodID int64
	PaymentMethod    string
	DiscountCode     string

	Subtotal       int64
	DiscountAmount int64
	DeliveryFee    int64
	Total          int64

	// 运费未确认的订单由客服人工核价后再收款。
	ShippingUnconfirmed bool

	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder 创建订单。走银行网关的订单从待支付开始，
// 货到付款的订单直接建立。
func NewOrder(id string, paymentMethod string) *Order {
	state := StateCreated
	if paymentMethod != "cash" {
		state = StatePendingPayment
	}
	now := time.Now()
	return &Order{
		ID:            id,
		PaymentMethod: paymentMethod,
		State:         state,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AwaitsPayment 报告订单是否还在等待支付结果。
func (o *Order) AwaitsPayment() bool {
	return o.State == StatePendingPayment
}

// MarkPaid 把待支付订单置为已支付。
func (o *Order) MarkPaid() error {
	if o.State != StatePendingPayment {
		return fmt.Errorf("%w: %s -> PAID", ErrInvalidStateChange, o.State)
	}
	o.State = StatePaid
	o.UpdatedAt = time.Now()
	return nil
}

// MarkFailed 标记支付失败。
func (o *Order) MarkFailed() error {
	if o.State != StatePendingPayment {
		return fmt.Errorf("%w: %s -> FAILED", ErrInvalidStateChange, o.State)
	}
	o.State = StateFailed
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel 取消订单。已支付订单不可在此取消，需走退款流程。
func (o *Order) Cancel() error {
	if o.State == StatePaid || o.State == StateCancelled {
		return fmt.Errorf("%w: %s -> CANCELLED", ErrInvalidStateChange, o.State)
	}
	o.State = StateCancelled
	o.UpdatedAt = time.Now()
	return nil
}
