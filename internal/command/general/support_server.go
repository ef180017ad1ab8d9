package general

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/pkg/cmd"
)

// SupportServerCommand links to the support server.
type SupportServerCommand struct {
	URL string
}

func (c *SupportServerCommand) Name() string               { return "support-server" }
func (c *SupportServerCommand) Description() string        { return "Get the link to the support server" }
func (c *SupportServerCommand) RequiresVoiceChannel() bool { return false }

func (c *SupportServerCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *SupportServerCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	ctx, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	return ctx.RespondEmbed(command.LinkEmbed("Click and join the help server!", c.URL))
}
