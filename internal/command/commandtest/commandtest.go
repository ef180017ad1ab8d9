// Package commandtest provides fakes for exercising commands without Discord.
package commandtest

import (
	"strings"
	"sync"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/pkg/cmd"
)

// Recorder is a command.Responder that keeps every reply and deferral.
type Recorder struct {
	mu       sync.Mutex
	replies  []command.Reply
	deferred []bool
	// Err, when set, is returned by Respond and Defer and nothing is kept.
	Err error
}

// Defer records a deferral and its visibility.
func (r *Recorder) Defer(ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.deferred = append(r.deferred, ephemeral)
	return nil
}

// Deferrals returns the visibility of every deferral, in order.
func (r *Recorder) Deferrals() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.deferred))
	copy(out, r.deferred)
	return out
}

// Respond records r.
func (r *Recorder) Respond(reply command.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.replies = append(r.replies, reply)
	return nil
}

// Replies returns the replies sent so far.
func (r *Recorder) Replies() []command.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]command.Reply, len(r.replies))
	copy(out, r.replies)
	return out
}

// Last returns the most recent reply and whether there was one.
func (r *Recorder) Last() (command.Reply, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return command.Reply{}, false
	}
	return r.replies[len(r.replies)-1], true
}

// Description returns the first embed description of the last reply.
func (r *Recorder) Description() string {
	last, ok := r.Last()
	if !ok || len(last.Embeds) == 0 {
		return ""
	}
	return last.Embeds[0].Description
}

// VoiceStates is an in-memory command.VoiceStates.
type VoiceStates struct {
	mu    sync.Mutex
	users map[string]string // guild/user -> channel
	bots  map[string]string // guild -> channel
}

var _ command.VoiceStates = (*VoiceStates)(nil)

// NewVoiceStates returns empty voice states.
func NewVoiceStates() *VoiceStates {
	return &VoiceStates{
		users: make(map[string]string),
		bots:  make(map[string]string),
	}
}

// SetUser places the user in a channel; an empty channel removes them.
func (v *VoiceStates) SetUser(guildID, userID, channelID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := guildID + "/" + userID
	if channelID == "" {
		delete(v.users, key)
		return
	}
	v.users[key] = channelID
}

// SetBot places the bot in a channel; an empty channel removes it.
func (v *VoiceStates) SetBot(guildID, channelID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if channelID == "" {
		delete(v.bots, guildID)
		return
	}
	v.bots[guildID] = channelID
}

func (v *VoiceStates) UserVoiceChannel(guildID, userID string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.users[guildID+"/"+userID]
	return ch, ok
}

func (v *VoiceStates) BotVoiceChannel(guildID string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.bots[guildID]
	return ch, ok
}

func (v *VoiceStates) ChannelMemberCount(guildID, channelID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	if v.bots[guildID] == channelID {
		n++
	}
	prefix := guildID + "/"
	for key, ch := range v.users {
		if ch == channelID && strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

// NewContext returns a guild context for user "U1" replying into rec.
func NewContext(guildID string, rec *Recorder) *command.Context {
	return &command.Context{
		GuildID:   guildID,
		ChannelID: "text",
		UserID:    "U1",
		Username:  "tester",
		TraceID:   "trace",
		Responder: rec,
	}
}

// Invocation wraps c for a direct cmd.Command.Run call.
func Invocation(c *command.Context) *cmd.Invocation {
	return &cmd.Invocation{Data: c}
}
