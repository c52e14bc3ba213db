package worker

import "github.com/bwmarrin/discordgo"

// Discord 单条消息长度上限
const maxMessageLength = 2000

// Sender 发送频道消息所需的 session 方法
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}
