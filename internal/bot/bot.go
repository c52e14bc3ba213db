package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/internal/pkg/report"
	"github.com/qs3c/premium_bot/internal/service"
)

const interactionTimeout = 10 * time.Second

// Responder 回复交互所需的 session 方法
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Gateway Ready 时用到的 session 方法
type Gateway interface {
	UpdateWatchStatus(idle int, name string) error
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Reporter 未预期错误的上报
type Reporter interface {
	Report(ctx context.Context, inc report.Incident) string
}

type Options struct {
	ApplicationID string
	GuildID       string
	InviteURL     string
	Presence      string
}

// Bot 斜杠命令和 modal 的分发
type Bot struct {
	responder Responder
	subs      *service.SubscriptionService
	users     *service.UserService
	reporter  Reporter
	opts      Options
	now       func() time.Time

	ready     chan struct{}
	readyOnce sync.Once

	// 已发送 deferred 响应的交互 ID，之后的回复走 followup
	deferred sync.Map
}

func New(responder Responder, subs *service.SubscriptionService, users *service.UserService, reporter Reporter, opts Options) *Bot {
	return &Bot{
		responder: responder,
		subs:      subs,
		users:     users,
		reporter:  reporter,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		ready:     make(chan struct{}),
	}
}

// Ready 网关首次 Ready 后关闭
func (b *Bot) Ready() <-chan struct{} {
	return b.ready
}

// Attach 注册 discordgo 事件处理器
func (b *Bot) Attach(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.onReady(s, r)
	})
	s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()
		b.Handle(ctx, i.Interaction)
	})
}

func (b *Bot) onReady(gw Gateway, r *discordgo.Ready) {
	log.Printf("Logged in as %s#%s", r.User.Username, r.User.Discriminator)

	if err := gw.UpdateWatchStatus(0, b.opts.Presence); err != nil {
		log.Printf("Failed to update presence: %v", err)
	}

	appID := b.opts.ApplicationID
	if appID == "" {
		appID = r.User.ID
	}
	if _, err := gw.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, Commands()); err != nil {
		log.Printf("Failed to register slash commands: %v", err)
	}

	b.readyOnce.Do(func() {
		close(b.ready)
		log.Println("Bot ready")
	})
}
