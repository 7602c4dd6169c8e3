package main

import (
	"log"

	"github.com/google/uuid"

	"agrimart/internal/pkg/bootstrap"
	"agrimart/internal/pkg/redis"
	"agrimart/internal/service/chat"
)

const (
	serviceName = "chat-service"
	servicePort = 8086
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	if !cfg.App.FeatureFlags.EnableLiveChat {
		log.Fatal("live chat is disabled by feature flag")
	}

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	nodeID := serviceName + "-" + uuid.NewString()[:8]
	hub := chat.NewHub()
	go hub.Run()

	registry := chat.NewSessionRegistry(redisClient)
	handler := chat.NewHandler(hub, registry, nodeID)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
