package interfaces

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/pkg/mq"
	"agrimart/internal/service/order/application"
	"agrimart/internal/service/order/infrastructure/adapter"
)

// TimeoutConsumer 消费支付超时检查消息并推进订单状态。
type TimeoutConsumer struct {
	reader  *kafka.Reader
	service *application.OrderService
}

func NewTimeoutConsumer(brokers []string, service *application.OrderService) *TimeoutConsumer {
	return &TimeoutConsumer{
		reader:  mq.NewKafkaReader(brokers, adapter.PaymentTimeoutTopic, "order-timeout-group"),
		service: service,
	}
}

// Run 阻塞消费直到 ctx 取消。处理失败的消息只记日志不重投，
// 订单状态检查本身是幂等的，下一次人工巡检会兜底。
func (c *TimeoutConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
		msgCtx = logger.WithContext(msgCtx)

		var task adapter.PaymentTimeoutTask
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Msg("malformed payment timeout task")
			continue
		}

		if err := c.service.HandlePaymentTimeout(msgCtx, task.OrderID); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Str("order_id", task.OrderID).Msg("payment timeout handling failed")
		}
	}
}

// Close 关闭底层 reader。
func (c *TimeoutConsumer) Close() error {
	return c.reader.Close()
}
