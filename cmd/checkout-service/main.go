package main

import (
	"log"

	"go.opentelemetry.io/otel"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/pkg/redis"
	"agrimart/internal/service/checkout/application"
	"agrimart/internal/service/checkout/infrastructure/adapter"
	"agrimart/internal/service/checkout/interfaces"
)

const (
	serviceName = "checkout-service"
	servicePort = 8081
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	tracer := otel.Tracer(serviceName)
	client := httpclient.NewClient(tracer)

	store := adapter.NewSessionRedisStore(redisClient)
	promotion := adapter.NewPromotionHTTPAdapter(client, cfg.Services.Promotion)
	delivery := adapter.NewDeliveryHTTPAdapter(client, cfg.Services.Delivery)
	orders := adapter.NewOrderHTTPAdapter(client, cfg.Services.Order)
	payments := adapter.NewPaymentHTTPAdapter(client, cfg.Services.Payment)

	service := application.NewCheckoutService(store, promotion, delivery, orders, payments, tracer)
	handler := interfaces.NewCheckoutHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
