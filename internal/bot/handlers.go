package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/internal/pkg/report"
	"github.com/qs3c/premium_bot/internal/service"
)

var errMissingPermissions = errors.New("missing manage roles permission")

// Handle 分发一次交互；拉黑检查先于任何命令
func (b *Bot) Handle(ctx context.Context, i *discordgo.Interaction) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	defer b.deferred.Delete(i.ID)

	var (
		name string
		err  error
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name = i.ApplicationCommandData().Name
	case discordgo.InteractionModalSubmit:
		name = i.ModalSubmitData().CustomID
	default:
		return
	}

	if err := b.users.CheckBlacklisted(ctx, user.ID); err != nil {
		var blacklisted *service.BlacklistedError
		if errors.As(err, &blacklisted) {
			b.reply(i, "", blacklistedEmbed(user.Username, blacklisted.Reason), true)
			return
		}
		b.fail(ctx, i, user, name, err)
		return
	}

	switch name {
	case CommandSubscribe:
		err = b.respond(i, subscribeModal())
	case CommandRegister:
		if !canManageRoles(i) {
			err = errMissingPermissions
			break
		}
		err = b.respond(i, registerModal())
	case CommandTerminate:
		err = b.handleTerminate(ctx, i, user)
	case CommandStatus:
		err = b.handleStatus(ctx, i, user)
	case ModalSubscribe:
		err = b.handleSubscribe(ctx, i, user)
	case ModalRegister:
		err = b.handleRegister(ctx, i, user)
	default:
		log.Printf("Unknown interaction %q from %s", name, user.ID)
		return
	}

	if err != nil {
		b.fail(ctx, i, user, name, err)
	}
}

func (b *Bot) handleSubscribe(ctx context.Context, i *discordgo.Interaction, user *discordgo.User) error {
	result, err := b.subs.Subscribe(ctx, service.SubscribeInput{
		UserID:        user.ID,
		UserName:      user.Username,
		TransactionID: modalValue(i.ModalSubmitData(), fieldTransaction),
	})
	if err != nil {
		return err
	}

	if result.Outcome == service.OutcomePending {
		b.reply(i, msgPending, nil, true)
		return nil
	}
	b.reply(i, fmt.Sprintf(msgActive, formatExpiry(result.ExpireAt)), nil, false)
	return nil
}

func (b *Bot) handleRegister(ctx context.Context, i *discordgo.Interaction, user *discordgo.User) error {
	if !canManageRoles(i) {
		return errMissingPermissions
	}

	if err := b.deferReply(i); err != nil {
		return err
	}

	data := i.ModalSubmitData()
	result, err := b.subs.Register(ctx, service.RegisterInput{
		TransactionID: modalValue(data, fieldTransaction),
		Expires:       modalValue(data, fieldExpires),
		ActorID:       user.ID,
	})
	if err != nil {
		return err
	}
	b.reply(i, "", registeredEmbed(result), true)
	return nil
}

func (b *Bot) handleTerminate(ctx context.Context, i *discordgo.Interaction, user *discordgo.User) error {
	if !canManageRoles(i) {
		return errMissingPermissions
	}

	if err := b.deferReply(i); err != nil {
		return err
	}

	opts := optionValues(i.ApplicationCommandData())
	mode := service.TerminateModeAnd
	if opts[optionMode] == string(service.TerminateModeOr) {
		mode = service.TerminateModeOr
	}

	records, err := b.subs.Terminate(ctx, service.TerminateInput{
		TransactionID: opts[optionTransaction],
		UserID:        opts[optionUser],
		Mode:          mode,
		ActorID:       user.ID,
	})
	if err != nil {
		return err
	}
	b.reply(i, "", terminatedEmbed(records), true)
	return nil
}

func (b *Bot) handleStatus(ctx context.Context, i *discordgo.Interaction, user *discordgo.User) error {
	subs, err := b.subs.Status(ctx, user.ID)
	if err != nil {
		return err
	}
	b.reply(i, "", statusEmbed(subs, b.now()), true)
	return nil
}

// fail 业务错误直接告知用户，其余错误上报并返回事故编号
func (b *Bot) fail(ctx context.Context, i *discordgo.Interaction, user *discordgo.User, name string, err error) {
	switch {
	case errors.Is(err, errMissingPermissions):
		b.reply(i, "", missingPermissionsEmbed(), true)
	case errors.Is(err, service.ErrNotResident):
		b.reply(i, fmt.Sprintf(msgNotResident, b.opts.InviteURL), nil, false)
	case errors.Is(err, service.ErrClaimedByOther):
		b.reply(i, msgClaimedByOther, nil, true)
	case isUserError(err):
		b.reply(i, "", errorEmbed(err.Error()), true)
	default:
		source := "command"
		if i.Type == discordgo.InteractionModalSubmit {
			source = "modal"
		}
		incidentID := b.reporter.Report(ctx, report.Incident{
			Source:    source,
			Command:   name,
			UserID:    user.ID,
			UserName:  user.Username,
			GuildID:   i.GuildID,
			ChannelID: i.ChannelID,
			Err:       err,
		})
		b.reply(i, "", unexpectedEmbed(incidentID), true)
	}
}

func isUserError(err error) bool {
	for _, target := range []error{
		service.ErrInvalidTransaction,
		service.ErrInvalidDate,
		service.ErrExpiryInPast,
		service.ErrMissingFilter,
		service.ErrInvalidUserID,
		service.ErrNothingDeleted,
		service.ErrClaimConflict,
		service.ErrTransactionGone,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (b *Bot) respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return b.responder.InteractionRespond(i, resp)
}

// deferReply 先确认交互（Discord 要求 3 秒内首次响应），结果稍后以 followup 发送
func (b *Bot) deferReply(i *discordgo.Interaction) error {
	err := b.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		return fmt.Errorf("failed to defer interaction: %w", err)
	}
	b.deferred.Store(i.ID, struct{}{})
	return nil
}

// reply 回复消息；发送失败只记录日志，交互 token 可能已失效
func (b *Bot) reply(i *discordgo.Interaction, content string, embed *discordgo.MessageEmbed, ephemeral bool) {
	var embeds []*discordgo.MessageEmbed
	if embed != nil {
		embeds = []*discordgo.MessageEmbed{embed}
	}
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	if _, ok := b.deferred.Load(i.ID); ok {
		_, err := b.responder.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
			Content: content,
			Embeds:  embeds,
			Flags:   flags,
		})
		if err != nil {
			log.Printf("Failed to send followup for interaction %s: %v", i.ID, err)
		}
		return
	}

	err := b.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Embeds:  embeds,
			Flags:   flags,
		},
	})
	if err != nil {
		log.Printf("Failed to respond to interaction %s: %v", i.ID, err)
	}
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// canManageRoles 私信中没有成员权限，一律拒绝
func canManageRoles(i *discordgo.Interaction) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageRoles != 0
}
