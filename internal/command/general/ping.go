package general

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/pkg/cmd"
)

// Heartbeater reports the gateway heartbeat latency. *discordgo.Session
// satisfies it.
type Heartbeater interface {
	HeartbeatLatency() time.Duration
}

// PingCommand replies with the gateway latency.
type PingCommand struct {
	Gateway Heartbeater
}

func (c *PingCommand) Name() string               { return "ping" }
func (c *PingCommand) Description() string        { return "Check bot latency" }
func (c *PingCommand) RequiresVoiceChannel() bool { return false }

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *PingCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	ctx, err := command.FromInvocation(inv)
	if err != nil {
		return err
	}
	latency := c.Gateway.HeartbeatLatency().Milliseconds()
	return ctx.RespondEmbedEphemeral(command.DefaultEmbed(fmt.Sprintf("🏓 Pong! %dms", latency)))
}
