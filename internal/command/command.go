// Package command holds the Discord-facing side of the command core: the
// invocation context handed to commands, reply helpers, and the dispatcher
// that enforces preconditions before a command runs.
package command

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/pkg/cmd"
)

var (
	// ErrWrongContext is returned when a command is invoked without a *Context.
	ErrWrongContext = errors.New("wrong context type")
	// ErrAlreadyReplied is returned by a second reply to the same interaction.
	ErrAlreadyReplied = errors.New("interaction already replied")
)

// SlashProvider is implemented by commands that register as slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// VoiceBound is implemented by commands that need the caller in a voice channel.
type VoiceBound interface {
	RequiresVoiceChannel() bool
}

// RequiresVoice reports whether c, or the command it wraps, is voice bound.
func RequiresVoice(c cmd.Command) bool {
	vb, ok := cmd.Root(c).(VoiceBound)
	return ok && vb.RequiresVoiceChannel()
}

// Reply is a single interaction response.
type Reply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

// Responder delivers the reply for one interaction. Defer acknowledges the
// interaction up front so the reply can follow slow work; the deferral and
// the reply after it still count as a single reply.
type Responder interface {
	Respond(Reply) error
	Defer(ephemeral bool) error
}

// Context is what the Discord adapter passes in cmd.Invocation.Data.
type Context struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	// VoiceChannelID is the caller's voice channel, set by the dispatcher
	// for voice-bound commands.
	VoiceChannelID string
	TraceID        string
	Responder      Responder
}

// FromInvocation extracts the *Context carried by inv.
func FromInvocation(inv *cmd.Invocation) (*Context, error) {
	if inv == nil {
		return nil, ErrWrongContext
	}
	c, ok := inv.Data.(*Context)
	if !ok || c == nil {
		return nil, ErrWrongContext
	}
	return c, nil
}

// Respond sends r through the context's responder.
func (c *Context) Respond(r Reply) error {
	return c.Responder.Respond(r)
}

// Defer acknowledges the interaction without replying yet. Commands call it
// before work that may outlast the platform's response deadline.
func (c *Context) Defer(ephemeral bool) error {
	return c.Responder.Defer(ephemeral)
}

// RespondEmbed sends a public embed reply.
func (c *Context) RespondEmbed(embed *discordgo.MessageEmbed) error {
	return c.Respond(Reply{Embeds: []*discordgo.MessageEmbed{embed}})
}

// RespondEmbedEphemeral sends an embed only the caller can see.
func (c *Context) RespondEmbedEphemeral(embed *discordgo.MessageEmbed) error {
	return c.Respond(Reply{Embeds: []*discordgo.MessageEmbed{embed}, Ephemeral: true})
}

// onceResponder lets exactly one reply through, optionally preceded by one
// deferral.
type onceResponder struct {
	mu       sync.Mutex
	next     Responder
	deferred bool
	replied  bool
}

func (o *onceResponder) Defer(ephemeral bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.replied {
		return ErrAlreadyReplied
	}
	if o.deferred {
		return nil
	}
	if err := o.next.Defer(ephemeral); err != nil {
		return err
	}
	o.deferred = true
	return nil
}

func (o *onceResponder) Respond(r Reply) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.replied {
		return ErrAlreadyReplied
	}
	if err := o.next.Respond(r); err != nil {
		return err
	}
	o.replied = true
	return nil
}

func (o *onceResponder) hasReplied() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.replied
}
