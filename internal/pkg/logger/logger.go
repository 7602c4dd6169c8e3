package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Init 配置全局 zerolog，并绑定服务名。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回与上下文关联的 logger。
// 如果上下文中带有有效的 trace，会附带 trace_id 字段，方便日志与链路对齐。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zlog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &zlog.Logger
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		tl := l.With().Str("trace_id", spanCtx.TraceID().String()).Logger()
		return &tl
	}
	return l
}

// WithContext 把带 trace_id 的 logger 注入上下文，供下游 handler 使用。
func WithContext(ctx context.Context) context.Context {
	return Ctx(ctx).WithContext(ctx)
}
