package main

import (
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/zookeeper"
	"agrimart/internal/service/promotion/application"
	"agrimart/internal/service/promotion/infrastructure"
	"agrimart/internal/service/promotion/infrastructure/rule"
	"agrimart/internal/service/promotion/interfaces"
)

const (
	serviceName = "promotion-service"
	servicePort = 8082
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.DiscountModel{}); err != nil {
		log.Fatalf("failed to migrate discount schema: %v", err)
	}

	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
	if err != nil {
		log.Fatalf("failed to connect to zookeeper: %v", err)
	}
	defer zkConn.Close()

	ruleEngine, err := rule.NewCELRuleEngine()
	if err != nil {
		log.Fatalf("failed to create rule engine: %v", err)
	}

	repo := infrastructure.NewGormDiscountRepository(db)
	service := application.NewPromotionService(repo, ruleEngine, zkConn, otel.Tracer(serviceName))
	handler := interfaces.NewPromotionHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
