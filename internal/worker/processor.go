package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/internal/pkg/queue"
)

var ErrNoChannel = errors.New("operator channel not configured")

// ReportProcessor 把异常报告投递到运维频道
type ReportProcessor struct {
	sender    Sender
	channelID string
}

func NewReportProcessor(sender Sender, channelID string) *ReportProcessor {
	return &ReportProcessor{sender: sender, channelID: channelID}
}

// Process 投递一条报告，超过 2000 字符时改为附件
func (p *ReportProcessor) Process(ctx context.Context, msg *queue.ReportMessage) error {
	if p.channelID == "" {
		return ErrNoChannel
	}

	header := reportHeader(msg)
	body := header + "\n```\n" + msg.Error
	if msg.Stack != "" {
		body += "\n\n" + msg.Stack
	}
	body += "\n```"

	send := &discordgo.MessageSend{Content: body}
	if len([]rune(body)) >= maxMessageLength {
		send = &discordgo.MessageSend{
			Content: header,
			Files: []*discordgo.File{{
				Name:        fmt.Sprintf("traceback-%s.txt", msg.IncidentID),
				ContentType: "text/plain",
				Reader:      strings.NewReader(msg.Error + "\n\n" + msg.Stack),
			}},
		}
	}

	if _, err := p.sender.ChannelMessageSendComplex(p.channelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to deliver report %s: %w", msg.IncidentID, err)
	}
	return nil
}

func reportHeader(msg *queue.ReportMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Incident `%s`** (%s)", msg.IncidentID, msg.Source)
	if msg.Command != "" {
		fmt.Fprintf(&b, " `%s`", msg.Command)
	}
	if msg.UserID != "" {
		fmt.Fprintf(&b, "\nUtilisateur : %s (<@%s>)", msg.UserName, msg.UserID)
	}
	if msg.ChannelID != "" {
		fmt.Fprintf(&b, "\nSalon : <#%s>", msg.ChannelID)
	}
	if !msg.OccurredAt.IsZero() {
		fmt.Fprintf(&b, "\nDate : <t:%d:F>", msg.OccurredAt.Unix())
	}
	return b.String()
}
