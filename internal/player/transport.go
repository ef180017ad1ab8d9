package player

import (
	"context"
	"time"
)

// Channel identifies the voice channel a player connects to.
type Channel struct {
	GuildID string
	ID      string
}

// Transport is the voice client the lifecycle is built on. It owns the
// actual gateway signalling and media; this package only decides who owns
// a connection and when to give up on it.
type Transport interface {
	// HasConnection reports whether the transport holds any voice
	// connection for the guild, including ones made outside this package.
	HasConnection(guildID string) bool
	Join(ctx context.Context, guildID, channelID string) (Handle, error)
}

// Handle is one live voice connection. Destroy must be idempotent.
type Handle interface {
	GuildID() string
	State() State
	OnStateChange(fn func(old, next State)) (remove func())
	AwaitState(ctx context.Context, want State, timeout time.Duration) error
	Destroy() error
}
