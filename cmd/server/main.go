package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nyxv/vpn_bot_server/config"
	"github.com/nyxv/vpn_bot_server/internal/api"
	"github.com/nyxv/vpn_bot_server/internal/api/handler"
	"github.com/nyxv/vpn_bot_server/internal/database"
	"github.com/nyxv/vpn_bot_server/internal/pkg/pubsub"
	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/pkg/storage"
	"github.com/nyxv/vpn_bot_server/internal/pkg/ws"
	"github.com/nyxv/vpn_bot_server/internal/repository"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化共享存储与队列
	st := storage.NewStorage(rdb)
	syncQueue := queue.NewQueue(rdb, cfg.Sync.SyncQueue)
	notificationQueue := queue.NewQueue(rdb, cfg.Sync.NotificationQueue)

	// 初始化 WebSocket Hub，并把对账事件流桥接到后台连接
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(event *pubsub.SyncEvent) {
			if err := wsHub.Broadcast(&ws.Message{Type: event.Type, Data: event}); err != nil {
				log.Printf("Failed to broadcast sync event: %v", err)
			}
		})
		if err != nil && err != context.Canceled {
			log.Printf("Sync event subscription stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// 初始化 Service
	cacheTTL := time.Duration(cfg.Sync.UserCacheTTLMinutes) * time.Minute
	notifier := service.NewQueueNotifier(notificationQueue)
	authService := service.NewAuthService(cfg.JWT)
	userService := service.NewUserService(userRepo, st, cacheTTL)
	accessService := service.NewAccessService(st, notifier)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, userRepo, st)

	// 流量重置边界的固定时区
	loc, err := time.LoadLocation(cfg.Access.Timezone)
	if err != nil {
		log.Printf("Warning: invalid timezone '%s', falling back to UTC", cfg.Access.Timezone)
		loc = time.UTC
	}

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	accessHandler := handler.NewAccessHandler(accessService)
	eventsHandler := handler.NewEventsHandler(userService, accessService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, loc)
	syncHandler := handler.NewSyncHandler(userService, syncQueue)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		accessHandler,
		eventsHandler,
		subscriptionHandler,
		syncHandler,
		websocketHandler,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
