package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/logger"
	"agrimart/internal/pkg/mq"
	"agrimart/internal/pkg/tracing"
)

const serviceName = "delay-scheduler"

// 支持的延迟级别，每个级别对应一个延迟主题。
var delayLevels = map[string]time.Duration{
	"delay_topic_5s":  5 * time.Second,
	"delay_topic_1m":  1 * time.Minute,
	"delay_topic_15m": 15 * time.Minute,
}

var tracer = otel.Tracer(serviceName)

// Scheduler 轮询一个延迟主题，把到期消息转投到消息头指定的真实主题。
type Scheduler struct {
	level   string
	delay   time.Duration
	brokers []string
	reader  *kafka.Reader

	writerLock sync.Mutex
	writers    map[string]*kafka.Writer // key 为真实主题
}

func NewScheduler(brokers []string, level string, delay time.Duration) *Scheduler {
	return &Scheduler{
		level:   level,
		delay:   delay,
		brokers: brokers,
		reader:  mq.NewKafkaReader(brokers, level, serviceName+"-group-"+level),
		writers: make(map[string]*kafka.Writer),
	}
}

// StartPolling 按固定周期检查队头消息，直到 ctx 取消。
func (s *Scheduler) StartPolling(ctx context.Context, interval time.Duration) {
	logger.Ctx(ctx).Info().Str("level", s.level).Dur("interval", interval).Msg("polling scheduler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.reader.Close()
	defer s.closeWriters()

	for {
		select {
		case <-ticker.C:
			s.checkAndPublish(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Str("level", s.level).Msg("polling scheduler stopped")
			return
		}
	}
}

// checkAndPublish 逐条检查队头消息。延迟主题内消息按写入序到期，
// 队头未到期即可停止本轮检查。
func (s *Scheduler) checkAndPublish(parentCtx context.Context) {
	for {
		fetchCtx, cancel := context.WithTimeout(parentCtx, 500*time.Millisecond)
		msg, err := s.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			// 无消息可读或上层退出，等下一次 tick。
			return
		}

		spanCtx := mq.ExtractTraceContext(parentCtx, msg.Headers)
		ctx, span := tracer.Start(spanCtx, "scheduler.check", trace.WithAttributes(
			attribute.String("delay.level", s.level),
		))

		deliveryTime := msg.Time.Add(s.delay)
		if time.Now().UTC().Before(deliveryTime) {
			span.AddEvent("HeadMessageNotDue")
			span.End()
			return
		}

		realTopic := headerValue(msg.Headers, "real-topic")
		if realTopic == "" {
			logger.Ctx(ctx).Error().Str("level", s.level).Msg("message missing real-topic header, skipping")
			// 坏消息也要提交，否则会被反复消费。
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("commit after skip failed")
			}
			span.End()
			continue
		}

		if err := s.publish(ctx, realTopic, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("topic", realTopic).Msg("failed to publish due message")
			// 不提交 offset，下一轮重试。
			span.RecordError(err)
			span.SetStatus(codes.Error, "publish failed")
			span.End()
			return
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("level", s.level).Msg("commit after publish failed")
			span.RecordError(err)
			span.End()
			return
		}
		span.AddEvent("MessagePublishedAndCommitted", trace.WithAttributes(attribute.String("real.topic", realTopic)))
		span.End()
	}
}

func (s *Scheduler) publish(ctx context.Context, realTopic string, msg kafka.Message) error {
	s.writerLock.Lock()
	writer, exists := s.writers[realTopic]
	if !exists {
		writer = mq.NewKafkaWriter(s.brokers, realTopic)
		s.writers[realTopic] = writer
	}
	s.writerLock.Unlock()

	publishMsg := kafka.Message{Key: msg.Key, Value: msg.Value}
	traceCtx := mq.ExtractTraceContext(ctx, msg.Headers)
	mq.InjectTraceContext(traceCtx, &publishMsg.Headers)

	return writer.WriteMessages(ctx, publishMsg)
}

func (s *Scheduler) closeWriters() {
	s.writerLock.Lock()
	defer s.writerLock.Unlock()
	for topic, writer := range s.writers {
		if err := writer.Close(); err != nil {
			log.Printf("failed to close writer for topic %s: %v", topic, err)
		}
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()
	logger.Init(serviceName)

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer provider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for level, delay := range delayLevels {
		wg.Add(1)
		scheduler := NewScheduler(cfg.Infra.Kafka.Brokers, level, delay)
		go func() {
			defer wg.Done()
			scheduler.StartPolling(ctx, time.Second)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("timed out waiting for schedulers to stop")
	}
}
