// Package player keeps one voice player per guild and owns the policy around
// its voice connection: who holds it, when to wait for a reconnect, and when
// to give up and tear the player down.
package player

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/pkg/parallel"
)

const closeWorkers = 8

// Registry maps guild IDs to players. Keys are unique: a guild has at most
// one player at any time.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player

	transport        Transport
	reconnectTimeout time.Duration
	log              zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithReconnectTimeout sets the bound of each reconnect wait.
func WithReconnectTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.reconnectTimeout = d
		}
	}
}

// WithLogger sets the logger used by the registry and its connections.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = log.With().Str("component", "player").Logger()
	}
}

// NewRegistry returns an empty registry whose players connect through transport.
func NewRegistry(transport Transport, opts ...Option) *Registry {
	r := &Registry{
		players:          make(map[string]*Player),
		transport:        transport,
		reconnectTimeout: DefaultReconnectTimeout,
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Has reports whether a player is registered for the guild.
func (r *Registry) Has(guildID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.players[guildID]
	return ok
}

// Create registers a new player for the guild.
func (r *Registry) Create(guildID string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[guildID]; ok {
		return nil, fmt.Errorf("guild %s: %w", guildID, ErrPlayerExists)
	}
	p := newPlayer(guildID, r)
	r.players[guildID] = p
	r.log.Debug().Str("guild_id", guildID).Msg("Player created")
	return p, nil
}

// Get returns the guild's player.
func (r *Registry) Get(guildID string) (*Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[guildID]
	if !ok {
		return nil, fmt.Errorf("guild %s: %w", guildID, ErrPlayerNotFound)
	}
	return p, nil
}

// GetOrCreate returns the guild's player, registering one first if needed.
func (r *Registry) GetOrCreate(guildID string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[guildID]; ok {
		return p
	}
	p := newPlayer(guildID, r)
	r.players[guildID] = p
	r.log.Debug().Str("guild_id", guildID).Msg("Player created")
	return p
}

// Delete removes the guild's player and releases its voice connection. The
// mapping is gone before the connection is destroyed, so no caller can get
// a half torn down player.
func (r *Registry) Delete(guildID string) error {
	return r.delete(guildID, nil, nil)
}

// delete removes the guild's player. With owner set, the player is removed
// only if it still runs owner and owner still stands for h, so a stale
// reconnect race cannot tear down a player or a connection newer than h.
func (r *Registry) delete(guildID string, owner *Connection, h Handle) error {
	r.mu.Lock()
	p, ok := r.players[guildID]
	if !ok || (owner != nil && (p.conn != owner || !owner.retire(h))) {
		r.mu.Unlock()
		return fmt.Errorf("guild %s: %w", guildID, ErrPlayerNotFound)
	}
	delete(r.players, guildID)
	r.mu.Unlock()

	r.log.Debug().Str("guild_id", guildID).Msg("Player deleted")
	if err := p.close(); err != nil {
		r.log.Warn().Err(err).Str("guild_id", guildID).Msg("Failed to release voice connection")
	}
	return nil
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// GuildIDs returns the guilds with a registered player, sorted.
func (r *Registry) GuildIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close deletes every player, releasing connections concurrently.
func (r *Registry) Close() {
	_ = parallel.Each(context.Background(), r.GuildIDs(), closeWorkers, func(_ context.Context, guildID string) error {
		if err := r.Delete(guildID); err != nil && !errors.Is(err, ErrPlayerNotFound) {
			r.log.Warn().Err(err).Str("guild_id", guildID).Msg("Failed to delete player on close")
		}
		return nil
	})
}
