package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"agrimart/internal/pkg/mq"
)

const (
	// 延迟调度走分级延迟主题，消息头里携带真实目标主题。
	delayTopic = "delay_topic_15m"

	// PaymentTimeoutTopic 是支付超时检查的真实目标主题。
	PaymentTimeoutTopic = "order-payment-timeout"
)

// PaymentTimeoutTask 是延迟投递的超时检查任务载荷。
type PaymentTimeoutTask struct {
	OrderID   string    `json:"orderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SchedulerKafkaAdapter 实现 domain.TimeoutScheduler。
type SchedulerKafkaAdapter struct {
	delayWriter *kafka.Writer
}

func NewSchedulerKafkaAdapter(brokers []string) *SchedulerKafkaAdapter {
	return &SchedulerKafkaAdapter{delayWriter: mq.NewKafkaWriter(brokers, delayTopic)}
}

// SchedulePaymentTimeout 发送一条延迟消息，到期后由调度器转投真实主题。
func (a *SchedulerKafkaAdapter) SchedulePaymentTimeout(ctx context.Context, orderID string, delay time.Duration) error {
	task := PaymentTimeoutTask{OrderID: orderID, CreatedAt: time.Now()}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "real-topic", Value: []byte(PaymentTimeoutTopic)},
			{Key: "delay-timestamp", Value: []byte(time.Now().Add(delay).Format(time.RFC3339))},
		},
	}
	mq.InjectTraceContext(ctx, &msg.Headers)
	return a.delayWriter.WriteMessages(ctx, msg)
}

// Close 关闭底层 writer。
func (a *SchedulerKafkaAdapter) Close() error {
	return a.delayWriter.Close()
}
