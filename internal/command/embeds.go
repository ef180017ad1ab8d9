package command

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// EmbedColor is the accent color of every reply embed.
const EmbedColor = 0xb01e66

// DefaultEmbed is a neutral notice.
func DefaultEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: fmt.Sprintf("**▫️ %s **", msg),
		Color:       EmbedColor,
	}
}

// LinkEmbed renders a titled link.
func LinkEmbed(title, url string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: fmt.Sprintf("**🏳️ [%s](%s)**", title, url),
		Color:       EmbedColor,
	}
}

// WarnEmbed is a notice about something the caller can fix.
func WarnEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: fmt.Sprintf("**❕ %s**", msg),
		Color:       EmbedColor,
	}
}

// ErrorEmbed reports a failure.
func ErrorEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: fmt.Sprintf("**❔ %s **", msg),
		Color:       EmbedColor,
	}
}
