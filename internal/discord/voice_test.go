package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/voicebot/internal/player"
	"github.com/keshon/voicebot/pkg/jobmgr"
)

const (
	testPoll    = 2 * time.Millisecond
	testWait    = time.Second
	testTick    = time.Millisecond
	testQuiet   = 50 * time.Millisecond
	testGuildID = "G"
)

func newSession() *discordgo.Session {
	return &discordgo.Session{VoiceConnections: make(map[string]*discordgo.VoiceConnection)}
}

func newTestTransport(guildID string) (*VoiceTransport, *voiceHandle) {
	t := NewVoiceTransport(newSession(), jobmgr.NewManager(zerolog.Nop()), zerolog.Nop())
	t.readyPoll = testPoll
	h := t.newHandle(guildID, player.StateReady)
	t.track(h)
	return t, h
}

// connectHandle gives h a voice connection registered in the session and
// starts its watcher, as a successful Join does.
func connectHandle(t *testing.T, tr *VoiceTransport, h *voiceHandle) *discordgo.VoiceConnection {
	t.Helper()
	vc := &discordgo.VoiceConnection{GuildID: h.guildID, Ready: true}
	tr.session.Lock()
	tr.session.VoiceConnections[h.guildID] = vc
	tr.session.Unlock()
	h.setConnection(vc)
	require.NoError(t, tr.jobs.StartAsync(context.Background(), h.job, h.watch))
	t.Cleanup(tr.jobs.StopAll)
	return vc
}

func setReady(vc *discordgo.VoiceConnection, ready bool) {
	vc.Lock()
	vc.Ready = ready
	vc.Unlock()
}

func botState(guildID, channelID string) *discordgo.VoiceState {
	return &discordgo.VoiceState{GuildID: guildID, UserID: "BOT", ChannelID: channelID}
}

func TestVoiceEventsDriveReconnectStates(t *testing.T) {
	tr, h := newTestTransport(testGuildID)

	var seen []player.State
	h.OnStateChange(func(_, next player.State) { seen = append(seen, next) })

	tr.HandleVoiceStateUpdate("BOT", botState(testGuildID, ""))
	assert.Equal(t, player.StateDisconnected, h.State())

	tr.HandleVoiceStateUpdate("BOT", botState(testGuildID, "C2"))
	assert.Equal(t, player.StateSignalling, h.State())

	tr.HandleVoiceServerUpdate(testGuildID)
	assert.Equal(t, player.StateConnecting, h.State())

	assert.Equal(t, []player.State{
		player.StateDisconnected,
		player.StateSignalling,
		player.StateConnecting,
	}, seen)
}

func TestVoiceEventsFromOtherUsersAreIgnored(t *testing.T) {
	tr, h := newTestTransport(testGuildID)

	tr.HandleVoiceStateUpdate("BOT", &discordgo.VoiceState{GuildID: testGuildID, UserID: "someone", ChannelID: ""})
	tr.HandleVoiceStateUpdate("BOT", nil)
	tr.HandleVoiceStateUpdate("BOT", botState("other-guild", ""))

	assert.Equal(t, player.StateReady, h.State())
}

func TestChannelMoveWhileReadyIsNotADisconnect(t *testing.T) {
	tr, h := newTestTransport(testGuildID)

	tr.HandleVoiceStateUpdate("BOT", botState(testGuildID, "C2"))
	tr.HandleVoiceServerUpdate(testGuildID)

	assert.Equal(t, player.StateReady, h.State())
}

func TestDestroyIsIdempotentAndForgetsHandle(t *testing.T) {
	tr, h := newTestTransport(testGuildID)

	require.NoError(t, h.Destroy())
	require.NoError(t, h.Destroy())

	assert.Equal(t, player.StateDestroyed, h.State())
	assert.Nil(t, tr.handle(testGuildID))

	// Events for a destroyed handle change nothing.
	tr.HandleVoiceStateUpdate("BOT", botState(testGuildID, ""))
	assert.Equal(t, player.StateDestroyed, h.State())
}

func TestForgetKeepsNewerHandle(t *testing.T) {
	tr, old := newTestTransport(testGuildID)
	newer := tr.newHandle(testGuildID, player.StateSignalling)
	tr.track(newer)

	tr.forget(old)
	assert.Same(t, newer, tr.handle(testGuildID))
}

func TestWatcherJobNamesAreUniquePerHandle(t *testing.T) {
	tr, a := newTestTransport(testGuildID)
	b := tr.newHandle(testGuildID, player.StateSignalling)

	assert.NotEqual(t, a.job, b.job)
}

func TestWatcherFollowsReadiness(t *testing.T) {
	tr, h := newTestTransport(testGuildID)
	vc := connectHandle(t, tr, h)

	setReady(vc, false)
	assert.Eventually(t, func() bool { return h.State() == player.StateDisconnected }, testWait, testTick)

	setReady(vc, true)
	assert.Eventually(t, func() bool { return h.State() == player.StateReady }, testWait, testTick)
	assert.True(t, tr.jobs.Running(h.job))
}

func TestWatcherDestroysHandleWhenSessionDropsConnection(t *testing.T) {
	tr, h := newTestTransport(testGuildID)
	connectHandle(t, tr, h)

	tr.session.Lock()
	delete(tr.session.VoiceConnections, testGuildID)
	tr.session.Unlock()

	assert.Eventually(t, func() bool { return h.State() == player.StateDestroyed }, testWait, testTick)
	assert.Eventually(t, func() bool { return !tr.jobs.Running(h.job) }, testWait, testTick)
	assert.Nil(t, tr.handle(testGuildID))
}

func TestDestroyAfterWatcherReleaseLeavesNewerConnection(t *testing.T) {
	tr, old := newTestTransport(testGuildID)
	connectHandle(t, tr, old)

	tr.session.Lock()
	delete(tr.session.VoiceConnections, testGuildID)
	tr.session.Unlock()
	require.Eventually(t, func() bool { return old.State() == player.StateDestroyed }, testWait, testTick)

	newer := tr.newHandle(testGuildID, player.StateReady)
	tr.track(newer)
	newVC := connectHandle(t, tr, newer)

	require.NoError(t, old.Destroy())

	assert.Never(t, func() bool { return !tr.jobs.Running(newer.job) }, testQuiet, testTick)
	assert.Equal(t, player.StateReady, newer.State())
	assert.Same(t, newer, tr.handle(testGuildID))

	tr.session.RLock()
	defer tr.session.RUnlock()
	assert.Same(t, newVC, tr.session.VoiceConnections[testGuildID])
}

func TestDestroyOfStaleHandleKeepsSessionEntry(t *testing.T) {
	tr, old := newTestTransport(testGuildID)
	old.setConnection(&discordgo.VoiceConnection{GuildID: testGuildID})

	current := &discordgo.VoiceConnection{GuildID: testGuildID, Ready: true}
	tr.session.Lock()
	tr.session.VoiceConnections[testGuildID] = current
	tr.session.Unlock()

	// The stale connection is not in the session table, so nothing is
	// disconnected and the current entry stays.
	require.NoError(t, old.Destroy())

	tr.session.RLock()
	defer tr.session.RUnlock()
	assert.Same(t, current, tr.session.VoiceConnections[testGuildID])
	assert.Equal(t, player.StateDestroyed, old.State())
}
