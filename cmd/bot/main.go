package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/config"
	"github.com/qs3c/premium_bot/internal/api"
	"github.com/qs3c/premium_bot/internal/api/handler"
	"github.com/qs3c/premium_bot/internal/bot"
	"github.com/qs3c/premium_bot/internal/database"
	"github.com/qs3c/premium_bot/internal/metrics"
	"github.com/qs3c/premium_bot/internal/pkg/cron"
	"github.com/qs3c/premium_bot/internal/pkg/dateparse"
	"github.com/qs3c/premium_bot/internal/pkg/discord"
	"github.com/qs3c/premium_bot/internal/pkg/oauth"
	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
	"github.com/qs3c/premium_bot/internal/pkg/queue"
	"github.com/qs3c/premium_bot/internal/pkg/report"
	"github.com/qs3c/premium_bot/internal/pkg/ws"
	"github.com/qs3c/premium_bot/internal/repository"
	"github.com/qs3c/premium_bot/internal/service"
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
	if cfg.Discord.Token == "" {
		log.Fatal("discord.token is required")
	}

	metrics.InitMetrics()

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Printf("Database connected (%s)", cfg.Database.Driver)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 异常上报
	sentryEnabled, err := report.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment)
	if err != nil {
		log.Printf("Warning: Failed to init sentry: %v", err)
	}
	defer report.Flush()
	reporter := report.NewReporter(queue.NewQueue(rdb, cfg.Queue.ReportQueue), sentryEnabled)

	// Discord 会话
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatalf("Failed to create discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	guild := discord.NewGuild(session, cfg.Discord.GuildID, cfg.Discord.PremiumRoleID)

	publisher := pubsub.NewPublisher(rdb, cfg.Queue.EventChannel)

	// 初始化 Repository
	subRepo := repository.NewSubscriptionRepository(db)
	userRepo := repository.NewRegisteredUserRepository(db)

	// 初始化 Service
	subService := service.NewSubscriptionService(subRepo, userRepo, guild, dateparse.New(), publisher)
	userService := service.NewUserService(userRepo)
	reconcileService := service.NewReconcileService(subRepo, guild, publisher)

	var provider service.OAuthProvider
	if cfg.OAuth.Discord.ClientID != "" {
		provider = oauth.NewDiscordOAuth(cfg.OAuth.Discord.ClientID, cfg.OAuth.Discord.ClientSecret, cfg.OAuth.Discord.RedirectURI)
	}
	authService := service.NewAuthService(cfg, provider)

	// Bot
	premiumBot := bot.New(session, subService, userService, reporter, bot.Options{
		ApplicationID: cfg.Discord.ApplicationID,
		GuildID:       cfg.Discord.GuildID,
		InviteURL:     cfg.Discord.InviteURL,
		Presence:      cfg.Discord.Presence,
	})
	premiumBot.Attach(session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 定时对账，等待网关 Ready 后才开始计时
	cronService := cron.NewService(reconcileService, cfg.Reconcile.IntervalMinutes, premiumBot.Ready())
	cronService.OnError(func(ctx context.Context, err error) {
		reporter.Report(ctx, report.Incident{Source: "reconcile", Err: err})
	})
	cronService.Start(ctx)

	// 账本事件推送给在线管理员
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb, cfg.Queue.EventChannel)
	go func() {
		err := subscriber.Subscribe(ctx, func(event *pubsub.Event) {
			if err := wsHub.Broadcast(&ws.Message{Type: event.Type, Data: event}); err != nil {
				log.Printf("Failed to broadcast %s: %v", event.Type, err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Event subscriber stopped: %v", err)
		}
	}()

	// 管理接口
	router := api.NewRouter(
		handler.NewAuthHandler(authService, oauth.NewStateStore(rdb)),
		handler.NewSubscriptionHandler(subService),
		handler.NewReconcileHandler(cronService),
		handler.NewUserHandler(userService),
		handler.NewWebSocketHandler(wsHub, authService, cfg.CORS.AllowedOrigins),
		authService,
		cfg,
	)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}
	go func() {
		log.Printf("Admin API starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	if err := session.Open(); err != nil {
		log.Fatalf("Failed to open discord gateway: %v", err)
	}
	log.Println("Discord gateway connected")

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	cronService.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Admin API shutdown: %v", err)
	}
	if err := session.Close(); err != nil {
		log.Printf("Discord session close: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("Redis close: %v", err)
	}
	log.Println("Bot shutdown complete")
}
