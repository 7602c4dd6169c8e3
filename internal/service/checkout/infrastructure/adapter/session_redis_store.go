package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"agrimart/internal/pkg/redis"
	"agrimart/internal/service/checkout/domain"
)

const (
	sessionKeyPrefix = "checkout:session:"
	pendingKeyPrefix = "checkout:pending-payment:"
	sessionTTL       = 7 * 24 * time.Hour
	// 待支付载荷保留 48 小时，超过网关支付有效期后由 TTL 回收
	pendingTTL = 48 * time.Hour
)

// SessionRedisStore 实现 domain.SessionStore，会话以 JSON 存于 Redis。
type SessionRedisStore struct {
	redisClient *redis.Client
}

func NewSessionRedisStore(redisClient *redis.Client) *SessionRedisStore {
	return &SessionRedisStore{redisClient: redisClient}
}

func (s *SessionRedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	val, err := s.redisClient.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load checkout session")
	}
	if val == "" {
		return nil, domain.ErrSessionNotFound
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, errors.Wrap(err, "corrupt checkout session")
	}
	return &session, nil
}

func (s *SessionRedisStore) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.redisClient.Set(ctx, sessionKeyPrefix+session.ID, string(data), sessionTTL)
}

func (s *SessionRedisStore) Delete(ctx context.Context, id string) error {
	return s.redisClient.Del(ctx, sessionKeyPrefix+id)
}

func (s *SessionRedisStore) SavePendingPayment(ctx context.Context, sessionID string, payload []byte) error {
	return s.redisClient.Set(ctx, pendingKeyPrefix+sessionID, string(payload), pendingTTL)
}

// GetPendingPayment 取回跳转支付前暂存的订单载荷。
func (s *SessionRedisStore) GetPendingPayment(ctx context.Context, sessionID string) ([]byte, error) {
	val, err := s.redisClient.Get(ctx, pendingKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}
