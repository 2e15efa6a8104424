package messenger

import "fmt"

// Chat-platform markup helpers. Timestamps render in each viewer's local
// timezone; Relative is a live countdown.

func Mention(userID string) string { return "<@" + userID + ">" }

func TimestampFull(unix int64) string { return fmt.Sprintf("<t:%d:F>", unix) }

func TimestampRelative(unix int64) string { return fmt.Sprintf("<t:%d:R>", unix) }

func ChannelLink(channelID string) string { return "<#" + channelID + ">" }

func MessageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

func ThreadLink(guildID, threadID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s", guildID, threadID)
}
