package main

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/service/notification"
	orderadapter "agrimart/internal/service/order/infrastructure/adapter"
)

const (
	serviceName = "notification-service"
	servicePort = 8087
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	consumer := notification.NewConsumer(cfg.Infra.Kafka.Brokers, orderadapter.OrderEventsTopic, notification.NewLogSender())
	defer consumer.Close()

	consumerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := consumer.Run(consumerCtx); err != nil {
			log.Printf("order event consumer stopped: %v", err)
		}
	}()

	// HTTP 端口只承载健康检查和指标。
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
	})
}
