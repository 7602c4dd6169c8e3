package domain

import "context"

// SessionStore 持久化结算会话。
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	// SavePendingPayment 在跳转到支付网关前持久化订单载荷，
	// 对应前端将订单暂存到本地存储的行为，回跳确认时取回。
	SavePendingPayment(ctx context.Context, sessionID string, payload []byte) error
}
