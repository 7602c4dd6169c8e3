package domain

import (
	"context"
	"time"
)

// OrderRepository 定义订单持久化接口。
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	UpdateState(ctx context.Context, id string, from, to State) error
}

// Event 是发往消息总线的订单事件。
type Event struct {
	Type      string `json:"type"`
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId"`
	Total     int64  `json:"total"`
	State     string `json:"state"`
	Timestamp int64  `json:"timestamp"`
}

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
	EventOrderFailed    = "order.failed"
)

// EventPublisher 是订单事件的出站端口。
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

// TimeoutScheduler 安排一个延迟投递的支付超时检查。
type TimeoutScheduler interface {
	SchedulePaymentTimeout(ctx context.Context, orderID string, delay time.Duration) error
}
