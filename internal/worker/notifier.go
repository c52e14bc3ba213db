package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/internal/pkg/discord"
	"github.com/qs3c/premium_bot/internal/pkg/pubsub"
)

// EventNotifier 把账本事件转发到管理频道
type EventNotifier struct {
	sender    Sender
	channelID string
}

func NewEventNotifier(sender Sender, channelID string) *EventNotifier {
	return &EventNotifier{sender: sender, channelID: channelID}
}

// Enabled 未配置管理频道时不转发
func (n *EventNotifier) Enabled() bool {
	return n.channelID != ""
}

// Notify 发送一条事件通知
func (n *EventNotifier) Notify(ctx context.Context, event *pubsub.Event) error {
	if !n.Enabled() {
		return nil
	}
	_, err := n.sender.ChannelMessageSendComplex(n.channelID, &discordgo.MessageSend{
		Content:         formatEvent(event),
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to notify %s: %w", event.Type, err)
	}
	return nil
}

func formatEvent(event *pubsub.Event) string {
	message := event.Message
	if message == "" {
		message = pubsub.EventMessages[event.Type]
	}
	if message == "" {
		message = event.Type
	}

	parts := []string{fmt.Sprintf("**%s** : `%s`", message, event.TransactionID)}
	if event.UserID != "" {
		parts = append(parts, fmt.Sprintf("utilisateur <@%s>", event.UserID))
	}
	if event.ActorID != "" {
		parts = append(parts, fmt.Sprintf("par <@%s>", event.ActorID))
	}
	if event.ExpireAt != nil {
		parts = append(parts, "expire "+discord.FormatTimestamp(*event.ExpireAt))
	}
	return strings.Join(parts, " · ")
}
