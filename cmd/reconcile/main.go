package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/config"
	"github.com/qs3c/premium_bot/internal/database"
	"github.com/qs3c/premium_bot/internal/pkg/discord"
	"github.com/qs3c/premium_bot/internal/repository"
	"github.com/qs3c/premium_bot/internal/service"
)

var (
	dryRun = flag.Bool("dry-run", true, "Dry run mode, only list expired subscriptions")
	at     = flag.String("at", "", "Reference time (RFC3339), defaults to now")
)

func main() {
	flag.Parse()

	log.Println("🧹 Starting manual reconcile...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	now := time.Now().UTC()
	if *at != "" {
		now, err = time.Parse(time.RFC3339, *at)
		if err != nil {
			log.Fatalf("Invalid -at value: %v", err)
		}
	}

	// 连接数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 只用 REST 接口撤销角色，不连接网关
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatalf("Failed to create discord session: %v", err)
	}
	guild := discord.NewGuild(session, cfg.Discord.GuildID, cfg.Discord.PremiumRoleID)

	// 手动执行不发布事件
	reconciler := service.NewReconcileService(repository.NewSubscriptionRepository(db), guild, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := reconciler.Run(ctx, now, *dryRun)
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}

	// 输出统计
	log.Println("\n" + strings.Repeat("=", 60))
	log.Println("📊 Reconcile Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Reference time: %s", now.Format(time.RFC3339))
	for _, sub := range result.Expired {
		log.Printf("  - %s (user %s, expired %s)",
			sub.TransactionID, *sub.UserID, sub.ExpireAt.Format(time.RFC3339))
	}
	log.Printf("Expired: %d", len(result.Expired))
	if *dryRun {
		log.Println("\n⚠️  DRY RUN MODE - Nothing was deleted")
		log.Println("   Run with -dry-run=false to actually reconcile")
	} else {
		log.Printf("Revoked: %d", result.Revoked)
		log.Printf("Deleted: %d", result.Deleted)
		log.Println("\n✅ Reconcile completed!")
	}
	log.Println(strings.Repeat("=", 60))
}
