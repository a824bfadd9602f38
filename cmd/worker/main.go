package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nyxv/vpn_bot_server/config"
	"github.com/nyxv/vpn_bot_server/internal/database"
	"github.com/nyxv/vpn_bot_server/internal/pkg/pubsub"
	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/pkg/remnawave"
	"github.com/nyxv/vpn_bot_server/internal/pkg/storage"
	"github.com/nyxv/vpn_bot_server/internal/pkg/telegram"
	"github.com/nyxv/vpn_bot_server/internal/repository"
	"github.com/nyxv/vpn_bot_server/internal/service"
	"github.com/nyxv/vpn_bot_server/internal/worker"
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

	// 初始化队列、发布者与外部客户端
	st := storage.NewStorage(rdb)
	syncQueue := queue.NewQueue(rdb, cfg.Sync.SyncQueue)
	notificationQueue := queue.NewQueue(rdb, cfg.Sync.NotificationQueue)
	publisher := pubsub.NewPublisher(rdb)
	panelClient := remnawave.NewClient(&cfg.Remnawave)
	telegramClient := telegram.NewClient(&cfg.Telegram)

	// 初始化 Repository 和 Service
	userRepo := repository.NewUserRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	cacheTTL := time.Duration(cfg.Sync.UserCacheTTLMinutes) * time.Minute
	userService := service.NewUserService(userRepo, st, cacheTTL)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, userRepo, st)

	// 创建处理器
	processor := worker.NewProcessor(subscriptionService, planRepo, panelClient, publisher, syncQueue, notificationQueue)
	dispatcher := worker.NewDispatcher(notificationQueue, telegramClient, cfg.Sync.NotificationChunkSize)
	scheduler := worker.NewScheduler(userService, syncQueue)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// 启动周期性全量对账
	if cfg.Sync.CronSpec != "" {
		if err := scheduler.Start(cfg.Sync.CronSpec); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	log.Printf("Worker started, max workers: %d", cfg.Sync.MaxWorkers)

	// 启动对账循环与通知投递循环
	for i := 0; i < cfg.Sync.MaxWorkers; i++ {
		go processor.Run(ctx)
	}
	go dispatcher.Run(ctx)

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}
