package general

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/pkg/cmd"
)

// HelpCommand lists every registered command as a flat, sorted list.
type HelpCommand struct {
	Registry *cmd.Registry
}

func (c *HelpCommand) Name() string               { return "help" }
func (c *HelpCommand) Description() string        { return "Get a list of available commands" }
func (c *HelpCommand) RequiresVoiceChannel() bool { return false }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *HelpCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	ctx, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	return ctx.RespondEmbedEphemeral(&discordgo.MessageEmbed{
		Title:       "Commands",
		Description: BuildHelp(c.Registry),
		Color:       command.EmbedColor,
	})
}

// BuildHelp renders one line per command. Voice-bound commands are marked.
func BuildHelp(r *cmd.Registry) string {
	var sb strings.Builder
	for _, c := range r.GetAll() {
		fmt.Fprintf(&sb, "`/%s` - %s", c.Name(), c.Description())
		if command.RequiresVoice(c) {
			sb.WriteString(" 🔊")
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
