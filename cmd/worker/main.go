package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/config"
	"github.com/qs3c/premium_bot/internal/database"
	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
	"github.com/qs3c/premium_bot/internal/pkg/queue"
	"github.com/qs3c/premium_bot/internal/worker"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 只用 REST 接口发消息，不连接网关
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatalf("Failed to create discord session: %v", err)
	}

	reportQueue := queue.NewQueue(rdb, cfg.Queue.ReportQueue)
	processor := worker.NewReportProcessor(session, cfg.Discord.ErrorChannelID)
	notifier := worker.NewEventNotifier(session, cfg.Discord.StaffChannelID)

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

	if notifier.Enabled() {
		subscriber := pubsub.NewSubscriber(rdb, cfg.Queue.EventChannel)
		go func() {
			err := subscriber.Subscribe(ctx, func(event *pubsub.Event) {
				if err := notifier.Notify(ctx, event); err != nil {
					log.Printf("Failed to notify staff: %v", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Event subscriber stopped: %v", err)
			}
		}()
		log.Println("Staff notifications enabled")
	}

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)
	worker.RunPool(ctx, reportQueue, processor, cfg.Queue.MaxWorkers)

	if err := rdb.Close(); err != nil {
		log.Printf("Redis close: %v", err)
	}
	log.Println("Worker shutdown complete")
}
