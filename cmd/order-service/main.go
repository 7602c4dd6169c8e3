package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/pkg/redis"
	"agrimart/internal/service/order/application"
	"agrimart/internal/service/order/infrastructure"
	"agrimart/internal/service/order/infrastructure/adapter"
	"agrimart/internal/service/order/interfaces"
)

const (
	serviceName = "order-service"
	servicePort = 8084
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.OrderModel{}); err != nil {
		log.Fatalf("failed to migrate order schema: %v", err)
	}

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	tracer := otel.Tracer(serviceName)
	client := httpclient.NewClient(tracer)

	repo := infrastructure.NewGormOrderRepository(db)
	publisher := adapter.NewEventKafkaPublisher(cfg.Infra.Kafka.Brokers)
	defer publisher.Close()
	scheduler := adapter.NewSchedulerKafkaAdapter(cfg.Infra.Kafka.Brokers)
	defer scheduler.Close()
	redeemer := adapter.NewPromotionRedeemAdapter(client, cfg.Services.Promotion)

	service := application.NewOrderService(repo, publisher, scheduler, redeemer, redisClient, tracer)
	handler := interfaces.NewOrderHandler(service)

	// 支付超时检查消费者与 HTTP 服务同进程运行。
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	consumer := interfaces.NewTimeoutConsumer(cfg.Infra.Kafka.Brokers, service)
	defer consumer.Close()
	go func() {
		if err := consumer.Run(consumerCtx); err != nil {
			log.Printf("timeout consumer stopped: %v", err)
		}
	}()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
