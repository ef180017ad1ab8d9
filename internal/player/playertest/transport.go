// Package playertest provides an in-memory voice transport for tests.
package playertest

import (
	"context"
	"sync"

	"github.com/keshon/voicebot/internal/player"
)

// Handle is a fake connection handle. Tests drive it with Transition.
type Handle struct {
	*player.StateTracker

	guildID   string
	ChannelID string

	mu        sync.Mutex
	destroyed int
	onDestroy func()
}

// GuildID returns the guild the handle was joined for.
func (h *Handle) GuildID() string { return h.guildID }

// Destroy marks the handle destroyed. Repeated calls are no-ops apart from
// being counted.
func (h *Handle) Destroy() error {
	h.mu.Lock()
	h.destroyed++
	first := h.destroyed == 1
	h.mu.Unlock()

	if first {
		h.Transition(player.StateDestroyed)
		if h.onDestroy != nil {
			h.onDestroy()
		}
	}
	return nil
}

// DestroyCalls returns how many times Destroy was called.
func (h *Handle) DestroyCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// Transport is a fake player.Transport keeping connections in a map, like
// the voice client's global connection table.
type Transport struct {
	mu      sync.Mutex
	conns   map[string]*Handle
	joins   []player.Channel
	JoinErr error
	// OnJoin, when set, runs at the start of every Join call without the
	// transport lock held.
	OnJoin func(guildID, channelID string)
	// InitialState is the state new handles start in. Defaults to StateReady.
	InitialState player.State
}

var _ player.Transport = (*Transport)(nil)

// NewTransport returns an empty fake transport.
func NewTransport() *Transport {
	return &Transport{
		conns:        make(map[string]*Handle),
		InitialState: player.StateReady,
	}
}

// HasConnection reports whether the guild has a live handle.
func (t *Transport) HasConnection(guildID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.conns[guildID]
	return ok
}

// Join records the call and returns a new handle unless JoinErr is set.
func (t *Transport) Join(_ context.Context, guildID, channelID string) (player.Handle, error) {
	if t.OnJoin != nil {
		t.OnJoin(guildID, channelID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.joins = append(t.joins, player.Channel{GuildID: guildID, ID: channelID})
	if t.JoinErr != nil {
		return nil, t.JoinErr
	}

	h := &Handle{
		StateTracker: player.NewStateTracker(t.InitialState),
		guildID:      guildID,
		ChannelID:    channelID,
	}
	h.onDestroy = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.conns[guildID] == h {
			delete(t.conns, guildID)
		}
	}
	t.conns[guildID] = h
	return h, nil
}

// Handle returns the live handle for the guild, or nil.
func (t *Transport) Handle(guildID string) *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[guildID]
}

// Joins returns every Join call made so far.
func (t *Transport) Joins() []player.Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]player.Channel, len(t.joins))
	copy(out, t.joins)
	return out
}

// Connect registers a handle without going through Join, for connections
// that exist outside the code under test.
func (t *Transport) Connect(guildID, channelID string) *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := &Handle{
		StateTracker: player.NewStateTracker(player.StateReady),
		guildID:      guildID,
		ChannelID:    channelID,
	}
	t.conns[guildID] = h
	return h
}
