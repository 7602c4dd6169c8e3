package main

import (
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/httpclient"
	"agrimart/internal/pkg/redis"
	"agrimart/internal/service/delivery/application"
	deldomain "agrimart/internal/service/delivery/domain"
	"agrimart/internal/service/delivery/infrastructure"
	"agrimart/internal/service/delivery/infrastructure/adapter"
	"agrimart/internal/service/delivery/interfaces"
)

const (
	serviceName = "delivery-service"
	servicePort = 8083
)

// 发货仓在胡志明市守德，所有配送距离从这里起算。
var warehouseOrigin = deldomain.Coordinate{Lat: 10.8494, Lng: 106.7537}

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.DeliveryMethodModel{}); err != nil {
		log.Fatalf("failed to migrate delivery schema: %v", err)
	}

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	tracer := otel.Tracer(serviceName)
	client := httpclient.NewClient(tracer)

	repo := infrastructure.NewGormMethodRepository(db)
	geocoder := adapter.NewProvincesGeocodeAdapter(client, cfg.Geo.ProvincesURL)
	router := adapter.NewORSRoutingAdapter(client, cfg.Routing.BaseURL, cfg.Routing.APIKey)

	service := application.NewDeliveryService(repo, geocoder, router, redisClient, warehouseOrigin, tracer)
	handler := interfaces.NewDeliveryHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
