package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultReconnectTimeout bounds each wait of the reconnect race.
const DefaultReconnectTimeout = 4 * time.Second

// Connection owns at most one voice connection for a guild and decides what
// happens when the transport reports a disconnect.
type Connection struct {
	mu          sync.Mutex
	guildID     string
	transport   Transport
	registry    *Registry
	handle      Handle
	unsubscribe func()
	joining     bool
	closed      bool

	reconnectTimeout time.Duration
	log              zerolog.Logger
}

func newConnection(guildID string, registry *Registry) *Connection {
	return &Connection{
		guildID:          guildID,
		transport:        registry.transport,
		registry:         registry,
		reconnectTimeout: registry.reconnectTimeout,
		log:              registry.log.With().Str("guild_id", guildID).Logger(),
	}
}

// HasConnection asks the transport, not local state, so connections created
// elsewhere in the process are seen too.
func (c *Connection) HasConnection(guildID string) bool {
	return c.transport.HasConnection(guildID)
}

// Connect joins the channel and starts following the connection's state.
// It fails with ErrConnectionExists while a handle is held or a join is in
// flight, and with ErrConnectionClosed once the player was deleted.
func (c *Connection) Connect(ctx context.Context, channel Channel) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrConnectionClosed
	case c.handle != nil || c.joining:
		c.mu.Unlock()
		return ErrConnectionExists
	}
	c.joining = true
	c.mu.Unlock()

	h, err := c.transport.Join(ctx, channel.GuildID, channel.ID)

	c.mu.Lock()
	c.joining = false
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w %s: %w", ErrJoinFailed, channel.ID, err)
	}
	if c.closed {
		c.mu.Unlock()
		if derr := h.Destroy(); derr != nil {
			c.log.Warn().Err(derr).Msg("Failed to destroy late voice connection")
		}
		return ErrConnectionClosed
	}
	c.handle = h
	c.unsubscribe = h.OnStateChange(func(old, next State) {
		c.onStateChange(h, old, next)
	})
	c.mu.Unlock()

	c.log.Info().Str("channel_id", channel.ID).Msg("Voice connection created")
	return nil
}

// State is the observed state of the held handle, or StateIdle without one.
func (c *Connection) State() State {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	if h == nil {
		return StateIdle
	}
	return h.State()
}

// Close drops the held handle and destroys it. A join still in flight is
// destroyed when it completes. Safe to call repeatedly.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.closed = true
	h := c.detach(nil)
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Destroy()
}

// detach clears the held handle if it is h (or any handle when h is nil)
// and returns what was cleared. Callers hold c.mu.
func (c *Connection) detach(h Handle) Handle {
	if c.handle == nil || (h != nil && c.handle != h) {
		return nil
	}
	cur := c.handle
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.handle = nil
	return cur
}

// retire closes the connection for good if h is still what it stands for:
// h is the held handle, or nothing is held and no join is in flight. It
// reports false when a newer handle took over.
func (c *Connection) retire(h Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != h && (c.handle != nil || c.joining) {
		return false
	}
	c.closed = true
	return true
}

func (c *Connection) onStateChange(h Handle, old, next State) {
	switch next {
	case StateReady:
		c.log.Info().Stringer("from", old).Msg("Voice connection is ready")
	case StateDisconnected:
		c.log.Warn().Stringer("from", old).Dur("timeout", c.reconnectTimeout).Msg("Voice connection lost, waiting for reconnect")
		go c.awaitReconnect(h)
	case StateDestroyed:
		c.mu.Lock()
		c.detach(h)
		c.mu.Unlock()
		c.log.Debug().Msg("Voice connection destroyed by transport")
	}
}

// awaitReconnect races a wait for Signalling against a wait for Connecting.
// If neither arrives in time the player is removed from the registry and
// then the handle is destroyed. The race runs once; there is no retry loop.
func (c *Connection) awaitReconnect(h Handle) {
	results := make(chan error, 2)
	for _, want := range []State{StateSignalling, StateConnecting} {
		go func(want State) {
			results <- h.AwaitState(context.Background(), want, c.reconnectTimeout)
		}(want)
	}

	for range 2 {
		if err := <-results; err == nil {
			c.log.Info().Msg("Voice connection is reconnecting")
			return
		}
	}

	// Both waits missed, but the transport may have moved through
	// Signalling/Connecting between the disconnect and the waits starting.
	switch h.State() {
	case StateSignalling, StateConnecting, StateReady:
		c.log.Info().Stringer("state", h.State()).Msg("Voice connection recovered during reconnect window")
		return
	}

	// A newer handle on this connection, or a newer player for the guild,
	// means this race only owns h.
	if err := c.registry.delete(c.guildID, c, h); err != nil {
		c.log.Debug().Msg("Voice connection was superseded, keeping player")
	} else {
		c.log.Warn().Msg("Voice connection did not recover, player removed")
	}

	c.mu.Lock()
	c.detach(h)
	c.mu.Unlock()
	if err := h.Destroy(); err != nil {
		c.log.Error().Err(err).Msg("Failed to destroy voice connection")
	}
}
