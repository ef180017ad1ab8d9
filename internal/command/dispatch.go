package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/pkg/cmd"
)

// User-facing texts of the dispatcher.
const (
	MsgGuildOnly      = "This command can only be used in a server."
	MsgUnknownCommand = "Unknown command."
	MsgNotInVoice     = "You need to be in a voice channel to use this command."
	MsgOtherChannel   = "You need to be in the same voice channel to use this command."
	MsgFailed         = "Failed."
)

// ErrCommandPanic wraps a panic recovered from a command.
var ErrCommandPanic = errors.New("command panicked")

// VoiceStates answers the voice-channel questions the dispatcher asks
// before running a voice-bound command.
type VoiceStates interface {
	// UserVoiceChannel returns the voice channel the user is in, if any.
	UserVoiceChannel(guildID, userID string) (string, bool)
	// BotVoiceChannel returns the voice channel the bot is in, if any.
	BotVoiceChannel(guildID string) (string, bool)
	// ChannelMemberCount counts members in the voice channel, the bot included.
	ChannelMemberCount(guildID, channelID string) int
}

// Dispatcher routes invocations to registered commands.
type Dispatcher struct {
	registry *cmd.Registry
	voice    VoiceStates
	log      zerolog.Logger
}

// NewDispatcher returns a dispatcher over the given registry.
func NewDispatcher(registry *cmd.Registry, voice VoiceStates, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		voice:    voice,
		log:      log.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch runs the named command for c. Every outcome, including
// precondition failures, command errors and panics, ends in exactly one
// reply. The returned error has already been logged and answered.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, c *Context) error {
	if c.TraceID == "" {
		c.TraceID = xid.New().String()
	}
	once := &onceResponder{next: c.Responder}
	c.Responder = once

	log := d.log.With().
		Str("trace_id", c.TraceID).
		Str("command", name).
		Str("guild_id", c.GuildID).
		Str("user_id", c.UserID).
		Logger()

	if c.GuildID == "" {
		return d.reject(log, c, WarnEmbed(MsgGuildOnly), "Command used outside a guild")
	}

	command, ok := d.registry.Get(name)
	if !ok {
		return d.reject(log, c, WarnEmbed(MsgUnknownCommand), "Unknown command")
	}

	if RequiresVoice(command) {
		userChannel, ok := d.voice.UserVoiceChannel(c.GuildID, c.UserID)
		if !ok {
			return d.reject(log, c, ErrorEmbed(MsgNotInVoice), "Caller is not in a voice channel")
		}
		if !d.sameChannel(c.GuildID, userChannel) {
			return d.reject(log, c, WarnEmbed(MsgOtherChannel), "Caller is in another voice channel")
		}
		c.VoiceChannelID = userChannel
	}

	err := d.run(ctx, command, c)
	if err == nil {
		return nil
	}

	log.Error().Err(err).Msg("Command failed")
	if !once.hasReplied() {
		if rerr := c.RespondEmbedEphemeral(ErrorEmbed(MsgFailed)); rerr != nil {
			log.Error().Err(rerr).Msg("Failed to send failure notice")
		}
	}
	return err
}

// sameChannel passes when the bot has no voice channel in the guild, shares
// the caller's channel, or sits in a channel with nobody else.
func (d *Dispatcher) sameChannel(guildID, userChannel string) bool {
	botChannel, ok := d.voice.BotVoiceChannel(guildID)
	if !ok || botChannel == userChannel {
		return true
	}
	return d.voice.ChannelMemberCount(guildID, botChannel) <= 1
}

func (d *Dispatcher) run(ctx context.Context, c cmd.Command, cctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.WithStack(fmt.Errorf("%w: %v", ErrCommandPanic, r))
			d.log.Error().Stack().Err(err).
				Str("trace_id", cctx.TraceID).
				Str("command", c.Name()).
				Msg("Recovered from panic")
		}
	}()
	return c.Run(ctx, &cmd.Invocation{Data: cctx})
}

func (d *Dispatcher) reject(log zerolog.Logger, c *Context, embed *discordgo.MessageEmbed, reason string) error {
	log.Warn().Msg(reason)
	if err := c.RespondEmbedEphemeral(embed); err != nil {
		log.Error().Err(err).Msg("Failed to send reply")
		return err
	}
	return nil
}
