package main

import (
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/service/payment/application"
	"agrimart/internal/service/payment/domain"
	"agrimart/internal/service/payment/infrastructure"
	"agrimart/internal/service/payment/infrastructure/adapter"
	"agrimart/internal/service/payment/interfaces"
)

const (
	serviceName = "payment-service"
	servicePort = 8085
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.PaymentModel{}); err != nil {
		log.Fatalf("failed to migrate payment schema: %v", err)
	}

	tracer := otel.Tracer(serviceName)
	client := httpclient.NewClient(tracer)

	gateway := &domain.Gateway{
		PayURL:     cfg.Gateway.PayURL,
		TmnCode:    cfg.Gateway.TmnCode,
		HashSecret: cfg.Gateway.HashSecret,
		ReturnURL:  cfg.Gateway.ReturnURL,
	}

	repo := infrastructure.NewGormPaymentRepository(db)
	notifier := adapter.NewOrderNotifierAdapter(client, cfg.Services.Order)
	service := application.NewPaymentService(gateway, repo, notifier, tracer)
	handler := interfaces.NewPaymentHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
