// Package voice holds the commands that manage the bot's voice connection.
package voice

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/internal/player"
	"github.com/keshon/voicebot/pkg/cmd"
)

const (
	MsgJoined           = "Joined."
	MsgAlreadyConnected = "The bot is already connected to a voice channel."
	MsgConnectFailed    = "An error occurred while connecting to the voice channel."
)

// JoinCommand connects the guild's player to the caller's voice channel.
type JoinCommand struct {
	Players *player.Registry
	Log     zerolog.Logger
}

func (c *JoinCommand) Name() string               { return "join" }
func (c *JoinCommand) Description() string        { return "Join your voice channel" }
func (c *JoinCommand) RequiresVoiceChannel() bool { return true }

func (c *JoinCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *JoinCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	if cc.VoiceChannelID == "" {
		return cc.RespondEmbedEphemeral(command.ErrorEmbed(command.MsgNotInVoice))
	}

	p := c.Players.GetOrCreate(cc.GuildID)
	if p.HasConnection(cc.GuildID) {
		return cc.RespondEmbedEphemeral(command.ErrorEmbed(MsgAlreadyConnected))
	}

	// Joining waits for the voice handshake, which can outlast the
	// interaction deadline.
	if err := cc.Defer(false); err != nil {
		return err
	}

	channel := player.Channel{GuildID: cc.GuildID, ID: cc.VoiceChannelID}
	if err := p.Connect(ctx, channel); err != nil {
		c.Log.Error().Err(err).
			Str("trace_id", cc.TraceID).
			Str("guild_id", cc.GuildID).
			Str("channel_id", channel.ID).
			Msg("Failed to join voice channel")
		return cc.RespondEmbedEphemeral(command.ErrorEmbed(MsgConnectFailed))
	}

	return cc.RespondEmbed(command.DefaultEmbed(MsgJoined))
}
