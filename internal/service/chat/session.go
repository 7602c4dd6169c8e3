package chat

import (
	"context"
	"time"

	"agrimart/internal/pkg/redis"
)

const (
	sessionKeyPrefix = "chat:session:"
	sessionTTL       = 2 * time.Hour
)

// SessionRegistry 在 redis 中记录用户连接在哪个网关节点，
// 多节点部署时消息路由据此定位。
type SessionRegistry struct {
	cache *redis.Client
}

func NewSessionRegistry(cache *redis.Client) *SessionRegistry {
	return &SessionRegistry{cache: cache}
}

// SetUserNode 记录用户所在节点。
func (r *SessionRegistry) SetUserNode(ctx context.Context, userID, nodeID string) error {
	return r.cache.Set(ctx, sessionKeyPrefix+userID, nodeID, sessionTTL)
}

// GetUserNode 查询用户所在节点，离线时返回空串。
func (r *SessionRegistry) GetUserNode(ctx context.Context, userID string) (string, error) {
	return r.cache.Get(ctx, sessionKeyPrefix+userID)
}

// ClearUserNode 清除用户会话。
func (r *SessionRegistry) ClearUserNode(ctx context.Context, userID string) error {
	return r.cache.Del(ctx, sessionKeyPrefix+userID)
}
