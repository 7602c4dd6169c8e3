package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"agrimart/internal/pkg/mq"
	"agrimart/internal/service/order/domain"
)

// OrderEventsTopic 承载订单全生命周期事件，通知等下游按组消费。
const OrderEventsTopic = "order-events"

// EventKafkaPublisher 实现 domain.EventPublisher。
type EventKafkaPublisher struct {
	writer *kafka.Writer
}

func NewEventKafkaPublisher(brokers []string) *EventKafkaPublisher {
	return &EventKafkaPublisher{writer: mq.NewKafkaWriter(brokers, OrderEventsTopic)}
}

// Publish 发送订单事件，按订单号分区保证单订单事件有序。
func (p *EventKafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(event.OrderID), payload)
}

// Close 关闭底层 writer。
func (p *EventKafkaPublisher) Close() error {
	return p.writer.Close()
}
