package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// RESTSession Guild 用到的 discordgo.Session 方法子集
type RESTSession interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Guild 单个服务器 + 高级会员角色
type Guild struct {
	session RESTSession
	guildID string
	roleID  string
}

func NewGuild(session RESTSession, guildID, roleID string) *Guild {
	return &Guild{
		session: session,
		guildID: guildID,
		roleID:  roleID,
	}
}

// IsMember 用户是否仍在服务器中
func (g *Guild) IsMember(ctx context.Context, userID string) (bool, error) {
	_, err := g.session.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if IsUnknownMember(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	return true, nil
}

// AddPremiumRole 授予高级会员角色
func (g *Guild) AddPremiumRole(ctx context.Context, userID, reason string) error {
	return g.session.GuildMemberRoleAdd(g.guildID, userID, g.roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

// RemovePremiumRole 移除高级会员角色，用户已离开服务器时视为成功
func (g *Guild) RemovePremiumRole(ctx context.Context, userID, reason string) error {
	err := g.session.GuildMemberRoleRemove(g.guildID, userID, g.roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil && IsUnknownMember(err) {
		return nil
	}
	return err
}

// SendDirectMessage 私信用户
func (g *Guild) SendDirectMessage(ctx context.Context, userID, content string) error {
	channel, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	_, err = g.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	return err
}

// IsUnknownMember 判断 Discord 返回的是否为 Unknown Member
func IsUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	return restErr.Message.Code == discordgo.ErrCodeUnknownMember
}

// FormatTimestamp Discord 时间戳标记，客户端按本地时区显示
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}
