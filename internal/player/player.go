package player

import "context"

// Player is the per-guild handle for voice state. It is created and owned by
// a Registry and never shared between guilds.
type Player struct {
	guildID string
	conn    *Connection
}

func newPlayer(guildID string, registry *Registry) *Player {
	return &Player{
		guildID: guildID,
		conn:    newConnection(guildID, registry),
	}
}

// GuildID returns the guild the player belongs to.
func (p *Player) GuildID() string { return p.guildID }

// Connect joins the voice channel. Errors from the connection are returned unchanged.
func (p *Player) Connect(ctx context.Context, channel Channel) error {
	return p.conn.Connect(ctx, channel)
}

// HasConnection reports whether the transport holds a connection for the guild.
func (p *Player) HasConnection(guildID string) bool {
	return p.conn.HasConnection(guildID)
}

// State returns the observed connection state.
func (p *Player) State() State { return p.conn.State() }

func (p *Player) close() error { return p.conn.Close() }
