package bot

import "github.com/bwmarrin/discordgo"

const (
	CommandSubscribe = "subscribe"
	CommandRegister  = "register"
	CommandTerminate = "terminate"
	CommandStatus    = "status"

	ModalSubscribe = "subscribe_modal"
	ModalRegister  = "register_modal"

	fieldTransaction = "transaction_id"
	fieldExpires     = "expires"

	optionTransaction = "transaction"
	optionUser        = "user"
	optionMode        = "mode"
)

var manageRoles int64 = discordgo.PermissionManageRoles

// Commands 注册到服务器的斜杠命令
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandSubscribe,
			Description: "Enregistrer votre numéro de transaction pour activer l'abonnement",
		},
		{
			Name:                     CommandRegister,
			Description:              "Valider un numéro de transaction",
			DefaultMemberPermissions: &manageRoles,
		},
		{
			Name:                     CommandTerminate,
			Description:              "Supprimer des abonnements",
			DefaultMemberPermissions: &manageRoles,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionTransaction,
					Description: "Numéro de transaction",
					MaxLength:   100,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        optionUser,
					Description: "Utilisateur",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionMode,
					Description: "Combinaison des deux critères (and par défaut)",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "and", Value: "and"},
						{Name: "or", Value: "or"},
					},
				},
			},
		},
		{
			Name:        CommandStatus,
			Description: "Voir l'état de vos abonnements",
		},
	}
}

func subscribeModal() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: ModalSubscribe,
			Title:    "Formulaire d'abonnement",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{transactionInput()}},
			},
		},
	}
}

func registerModal() *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: ModalRegister,
			Title:    "Valider une transaction",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{transactionInput()}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    fieldExpires,
						Label:       "Expiration",
						Style:       discordgo.TextInputShort,
						Placeholder: "30j, 3 mois, 2026-12-31, next friday...",
						Required:    true,
						MaxLength:   100,
					},
				}},
			},
		},
	}
}

func transactionInput() discordgo.TextInput {
	return discordgo.TextInput{
		CustomID:    fieldTransaction,
		Label:       "Numéro De Transaction",
		Style:       discordgo.TextInputShort,
		Placeholder: "32435275Z397962A (vous pouvez le trouver dans les detail de la transaction sur PayPal)",
		Required:    true,
		MinLength:   5,
		MaxLength:   50,
	}
}

// modalValue 读取 modal 中指定输入框的值
func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, c := range data.Components {
		var row discordgo.ActionsRow
		switch r := c.(type) {
		case *discordgo.ActionsRow:
			row = *r
		case discordgo.ActionsRow:
			row = r
		default:
			continue
		}
		for _, inner := range row.Components {
			switch in := inner.(type) {
			case *discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			case discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			}
		}
	}
	return ""
}

// optionValues 命令参数按名称索引
func optionValues(data discordgo.ApplicationCommandInteractionData) map[string]string {
	values := make(map[string]string, len(data.Options))
	for _, opt := range data.Options {
		if v, ok := opt.Value.(string); ok {
			values[opt.Name] = v
		}
	}
	return values
}
