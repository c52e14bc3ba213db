package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/qs3c/premium_bot/internal/model"
	"github.com/qs3c/premium_bot/internal/pkg/discord"
	"github.com/qs3c/premium_bot/internal/service"
)

const embedColour = 0xA37FFF

const (
	msgPending = "Votre numéro de transaction n'a pas encore été ajouté dans la base de donnée, votre inscription " +
		"est donc pour l'instant en attente. Je vous contacterai quand elle aura été validée."
	msgClaimedByOther = "Un abonnement a déjà été enregistré avec ce numéro de transaction, votre demande a donc été annulée."
	msgNotResident    = "Vous n'êtes pas dans le serveur, merci de rejoindre %s avant de vous inscrire."
	msgActive         = "Votre abonnement a bien été enregistré et est valable jusqu'au %s."
	msgUnexpected     = "Désolé, une erreur s'est produite, Mon developpeur en a été informé."
	msgBlacklisted    = "Désolé **%s**, tu ne peux plus utiliser le bot jusqu'a nouvel ordre, médite sur tes actions pendant ce temps :)"
	msgMissingPerms   = "Tu as besoin des permissions **Manage Roles** pour utiliser cette commande."
	msgNoSubscription = "Vous n'avez aucun abonnement enregistré."
)

func errorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Erreur",
		Description: capitalize(description),
		Color:       embedColour,
	}
}

func unexpectedEmbed(incidentID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Erreur",
		Description: msgUnexpected,
		Color:       embedColour,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Incident :", Value: "`" + incidentID + "`"},
		},
	}
}

func blacklistedEmbed(userName, reason string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🛑 Blacklisté",
		Description: fmt.Sprintf(msgBlacklisted, userName),
		Color:       embedColour,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Raison :", Value: reason},
		},
	}
}

func missingPermissionsEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🛑 Il Te Manques Des Permissions",
		Description: msgMissingPerms,
		Color:       embedColour,
	}
}

func registeredEmbed(result *service.RegisterResult) *discordgo.MessageEmbed {
	sub := result.Subscription
	embed := &discordgo.MessageEmbed{
		Title: "✅ Transaction validée",
		Color: embedColour,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Transaction", Value: "`" + sub.TransactionID + "`", Inline: true},
			{Name: "Expiration", Value: discord.FormatTimestamp(*sub.ExpireAt), Inline: true},
		},
	}

	switch {
	case result.BindingCleared:
		embed.Description = "L'utilisateur lié n'est plus dans le serveur, la transaction peut être réclamée à nouveau."
	case sub.IsBound():
		status := "rôle attribué"
		if !result.Granted {
			status = "rôle non attribué"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Utilisateur",
			Value: fmt.Sprintf("<@%s> (%s)", *sub.UserID, status),
		})
	default:
		embed.Description = "En attente de réclamation via /subscribe."
	}
	return embed
}

func terminatedEmbed(records []service.TerminatedRecord) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("**%s** : `%s`", r.DisplayName, r.TransactionID))
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🗑️ %d abonnement(s) supprimé(s)", len(records)),
		Description: strings.Join(lines, "\n"),
		Color:       embedColour,
	}
}

func statusEmbed(subs []model.Subscription, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📋 Vos abonnements",
		Color: embedColour,
	}
	if len(subs) == 0 {
		embed.Description = msgNoSubscription
		return embed
	}

	for _, sub := range subs {
		var value string
		switch {
		case !sub.IsActive():
			value = "En attente de validation"
		case sub.ExpiredAt(now):
			value = "Expiré le " + discord.FormatTimestamp(*sub.ExpireAt)
		default:
			value = "Valable jusqu'au " + discord.FormatTimestamp(*sub.ExpireAt)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  sub.TransactionID,
			Value: value,
		})
	}
	return embed
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "?"
	}
	return discord.FormatTimestamp(*t)
}
