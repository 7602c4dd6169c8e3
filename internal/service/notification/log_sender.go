package notification

import (
	"context"

	"agrimart/internal/pkg/logger"
)

// LogSender 把通知写入日志，用于开发环境和尚未接入真实通道的部署。
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, userID, title, body string) error {
	logger.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("title", title).
		Str("body", body).
		Msg("notification delivered")
	return nil
}
