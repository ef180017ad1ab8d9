package voice

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/internal/player"
	"github.com/keshon/voicebot/pkg/cmd"
)

const (
	MsgLeft         = "Left."
	MsgNotConnected = "The bot is not connected to a voice channel."
)

// LeaveCommand deletes the guild's player, which tears down its connection.
type LeaveCommand struct {
	Players *player.Registry
}

func (c *LeaveCommand) Name() string               { return "leave" }
func (c *LeaveCommand) Description() string        { return "Leave the voice channel" }
func (c *LeaveCommand) RequiresVoiceChannel() bool { return true }

func (c *LeaveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *LeaveCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	cc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	// Leaving closes the voice sockets, which takes a moment.
	if err := cc.Defer(false); err != nil {
		return err
	}
	if err := c.Players.Delete(cc.GuildID); err != nil {
		if errors.Is(err, player.ErrPlayerNotFound) {
			return cc.RespondEmbedEphemeral(command.ErrorEmbed(MsgNotConnected))
		}
		return err
	}
	return cc.RespondEmbed(command.DefaultEmbed(MsgLeft))
}
