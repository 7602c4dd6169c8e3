package notification

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"agrimart/internal/pkg/logger"
	"agrimart/internal/pkg/mq"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notifications_sent_total",
	Help: "Notifications sent by event type and channel.",
}, []string{"event", "channel"})

// orderEvent 与订单服务发布的事件格式对齐。
type orderEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Total   int64  `json:"total"`
	State   string `json:"state"`
}

// Sender 是实际发送通知的出站端口（短信、站内信等）。
type Sender interface {
	Send(ctx context.Context, userID, title, body string) error
}

// Consumer 消费订单事件并向用户发送通知。
type Consumer struct {
	reader *kafka.Reader
	sender Sender
}

func NewConsumer(brokers []string, topic string, sender Sender) *Consumer {
	return &Consumer{
		reader: mq.NewKafkaReader(brokers, topic, "notification-group"),
		sender: sender,
	}
}

// Run 阻塞消费直到 ctx 取消。
func (c *Consumer) Run(ctx context.Context) error {
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

		var event orderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Msg("malformed order event")
			continue
		}

		title, body, ok := render(&event)
		if !ok {
			continue
		}
		if err := c.sender.Send(msgCtx, event.UserID, title, body); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Str("order_id", event.OrderID).Msg("notification send failed")
			continue
		}
		notificationsTotal.WithLabelValues(event.Type, "push").Inc()
	}
}

// Close 关闭底层 reader。
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// render 生成面向用户的越南语通知文案。
func render(event *orderEvent) (title, body string, ok bool) {
	switch event.Type {
	case "order.created":
		return "Đặt hàng thành công", "Đơn hàng " + event.OrderID + " của bạn đã được tạo.", true
	case "order.paid":
		return "Thanh toán thành công", "Đơn hàng " + event.OrderID + " đã được thanh toán.", true
	case "order.cancelled":
		return "Đơn hàng đã hủy", "Đơn hàng " + event.OrderID + " đã bị hủy do quá hạn thanh toán.", true
	case "order.failed":
		return "Thanh toán thất bại", "Thanh toán cho đơn hàng " + event.OrderID + " không thành công, vui lòng thử lại.", true
	default:
		return "", "", false
	}
}
