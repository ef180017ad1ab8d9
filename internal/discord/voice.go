package discord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/internal/player"
	"github.com/keshon/voicebot/pkg/jobmgr"
)

const defaultReadyPoll = 250 * time.Millisecond

// VoiceTransport implements player.Transport over a discordgo session.
// discordgo exposes no connection state events, so states are derived from
// the bot's own voice gateway events and from a watcher job per connection
// that polls VoiceConnection.Ready.
type VoiceTransport struct {
	session   *discordgo.Session
	jobs      *jobmgr.Manager
	log       zerolog.Logger
	readyPoll time.Duration

	mu      sync.Mutex
	handles map[string]*voiceHandle
}

var _ player.Transport = (*VoiceTransport)(nil)

// NewVoiceTransport returns a transport joining channels through session.
func NewVoiceTransport(session *discordgo.Session, jobs *jobmgr.Manager, log zerolog.Logger) *VoiceTransport {
	return &VoiceTransport{
		session:   session,
		jobs:      jobs,
		log:       log.With().Str("component", "voice").Logger(),
		readyPoll: defaultReadyPoll,
		handles:   make(map[string]*voiceHandle),
	}
}

// HasConnection reads the session's voice connection table, so connections
// made by anything sharing the session count.
func (t *VoiceTransport) HasConnection(guildID string) bool {
	t.session.RLock()
	defer t.session.RUnlock()
	_, ok := t.session.VoiceConnections[guildID]
	return ok
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Join connects to the channel. The returned handle is Ready; a join that
// fails or is cancelled leaves no handle behind.
func (t *VoiceTransport) Join(ctx context.Context, guildID, channelID string) (player.Handle, error) {
	h := t.newHandle(guildID, player.StateSignalling)
	t.track(h)

	done := make(chan joinResult, 1)
	go func() {
		vc, err := t.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joinResult{vc: vc, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				_ = t.disconnectIfCurrent(guildID, r.vc)
			}
		}()
		h.release()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			// discordgo keeps a failed connection in its table; drop it so
			// the guild does not look connected.
			_ = t.disconnectIfCurrent(guildID, r.vc)
			h.release()
			return nil, r.err
		}
		h.setConnection(r.vc)
	}

	h.Transition(player.StateReady)
	if err := t.jobs.StartAsync(context.Background(), h.job, h.watch); err != nil {
		t.log.Warn().Err(err).Str("guild_id", guildID).Msg("Voice watcher not started")
	}
	return h, nil
}

// HandleVoiceStateUpdate feeds the bot's own voice state changes into the
// guild's handle. Leaving the channel means Disconnected; a channel showing
// up again while disconnected means the gateway is signalling a reconnect.
func (t *VoiceTransport) HandleVoiceStateUpdate(botUserID string, vs *discordgo.VoiceState) {
	if vs == nil || vs.UserID != botUserID {
		return
	}
	h := t.handle(vs.GuildID)
	if h == nil {
		return
	}
	switch {
	case vs.ChannelID == "":
		h.Transition(player.StateDisconnected)
	case h.State() == player.StateDisconnected:
		h.Transition(player.StateSignalling)
	}
}

// HandleVoiceServerUpdate marks the guild's handle as connecting to the
// voice server it was just given.
func (t *VoiceTransport) HandleVoiceServerUpdate(guildID string) {
	h := t.handle(guildID)
	if h == nil {
		return
	}
	switch h.State() {
	case player.StateSignalling, player.StateDisconnected:
		h.Transition(player.StateConnecting)
	}
}

func (t *VoiceTransport) newHandle(guildID string, initial player.State) *voiceHandle {
	return &voiceHandle{
		StateTracker: player.NewStateTracker(initial),
		guildID:      guildID,
		job:          watcherJob(guildID),
		transport:    t,
	}
}

// disconnectIfCurrent leaves the channel through vc only while the session
// still maps the guild to vc. A stale connection must not remove the table
// entry of the one that replaced it.
func (t *VoiceTransport) disconnectIfCurrent(guildID string, vc *discordgo.VoiceConnection) error {
	if vc == nil {
		return nil
	}
	t.session.RLock()
	current := t.session.VoiceConnections[guildID]
	t.session.RUnlock()
	if current != vc {
		return nil
	}
	return vc.Disconnect()
}

func (t *VoiceTransport) track(h *voiceHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[h.guildID] = h
}

func (t *VoiceTransport) forget(h *voiceHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handles[h.guildID] == h {
		delete(t.handles, h.guildID)
	}
}

func (t *VoiceTransport) handle(guildID string) *voiceHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handles[guildID]
}

// watcherJob names a handle's watcher. Names are unique per handle so a
// stale handle never stops the watcher of a newer one.
func watcherJob(guildID string) string { return "voice:" + guildID + ":" + xid.New().String() }

// voiceHandle is one joined voice connection.
type voiceHandle struct {
	*player.StateTracker

	guildID   string
	job       string
	transport *VoiceTransport

	mu        sync.Mutex
	vc        *discordgo.VoiceConnection
	destroyed bool
}

func (h *voiceHandle) GuildID() string { return h.guildID }

func (h *voiceHandle) setConnection(vc *discordgo.VoiceConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vc = vc
}

func (h *voiceHandle) connection() *discordgo.VoiceConnection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vc
}

// Destroy leaves the channel. Only the first call does anything, including
// after the watcher found the connection gone. It must not be called from a
// state listener running on the watcher goroutine.
func (h *voiceHandle) Destroy() error {
	vc, first := h.release()
	if !first {
		return nil
	}
	if err := h.transport.jobs.Stop(h.job); err != nil && !errors.Is(err, jobmgr.ErrJobNotRunning) {
		h.transport.log.Warn().Err(err).Str("guild_id", h.guildID).Msg("Failed to stop voice watcher")
	}
	return h.transport.disconnectIfCurrent(h.guildID, vc)
}

// release marks the handle destroyed and returns its connection. first is
// false when the handle was already released.
func (h *voiceHandle) release() (vc *discordgo.VoiceConnection, first bool) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil, false
	}
	h.destroyed = true
	vc = h.vc
	h.mu.Unlock()

	h.transport.forget(h)
	h.Transition(player.StateDestroyed)
	return vc, true
}

// watch runs as a jobmgr job until the handle is destroyed or the
// connection disappears from the session.
func (h *voiceHandle) watch(ctx context.Context) error {
	ticker := time.NewTicker(h.transport.readyPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if h.State() == player.StateDestroyed {
			return nil
		}
		if !h.observe() {
			h.release()
			return nil
		}
	}
}

// observe maps VoiceConnection.Ready onto the handle. It reports false once
// the session no longer holds this connection.
func (h *voiceHandle) observe() bool {
	vc := h.connection()
	s := h.transport.session

	s.RLock()
	current := s.VoiceConnections[h.guildID]
	s.RUnlock()
	if current != vc {
		return false
	}

	vc.RLock()
	ready := vc.Ready
	vc.RUnlock()

	state := h.State()
	switch {
	case ready && state != player.StateReady:
		h.Transition(player.StateReady)
	case !ready && state == player.StateReady:
		h.Transition(player.StateDisconnected)
	}
	return true
}
