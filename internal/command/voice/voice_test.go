package voice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/internal/command/commandtest"
	"github.com/keshon/voicebot/internal/command/voice"
	"github.com/keshon/voicebot/internal/player"
	"github.com/keshon/voicebot/internal/player/playertest"
	"github.com/keshon/voicebot/pkg/cmd"
)

type VoiceSuite struct {
	suite.Suite
	transport *playertest.Transport
	players   *player.Registry
	states    *commandtest.VoiceStates
	rec       *commandtest.Recorder
	disp      *command.Dispatcher
}

func TestVoiceSuite(t *testing.T) {
	suite.Run(t, new(VoiceSuite))
}

func (s *VoiceSuite) SetupTest() {
	s.transport = playertest.NewTransport()
	s.players = player.NewRegistry(s.transport)
	s.states = commandtest.NewVoiceStates()
	s.rec = &commandtest.Recorder{}

	registry := cmd.NewRegistry()
	s.Require().NoError(registry.Register(
		&voice.JoinCommand{Players: s.players, Log: zerolog.Nop()},
		&voice.LeaveCommand{Players: s.players},
	))
	s.disp = command.NewDispatcher(registry, s.states, zerolog.Nop())
	s.states.SetUser("G", "U1", "C")
}

func (s *VoiceSuite) TearDownTest() {
	s.players.Close()
}

func (s *VoiceSuite) run(name string) error {
	return s.disp.Dispatch(context.Background(), name, commandtest.NewContext("G", s.rec))
}

func (s *VoiceSuite) TestJoinConnectsToCallerChannel() {
	var deferredAtJoin []bool
	s.transport.OnJoin = func(_, _ string) { deferredAtJoin = s.rec.Deferrals() }

	s.NoError(s.run("join"))

	s.Equal([]bool{false}, deferredAtJoin, "interaction must be acknowledged before joining")
	s.Len(s.rec.Replies(), 1)

	s.True(s.players.Has("G"))
	s.Equal([]player.Channel{{GuildID: "G", ID: "C"}}, s.transport.Joins())
	last, _ := s.rec.Last()
	s.False(last.Ephemeral)
	s.Equal(command.DefaultEmbed(voice.MsgJoined).Description, s.rec.Description())
}

func (s *VoiceSuite) TestJoinWhenAlreadyConnected() {
	s.transport.Connect("G", "C")

	s.NoError(s.run("join"))

	s.Empty(s.transport.Joins())
	s.Empty(s.rec.Deferrals())
	last, _ := s.rec.Last()
	s.True(last.Ephemeral)
	s.Equal(command.ErrorEmbed(voice.MsgAlreadyConnected).Description, s.rec.Description())
}

func (s *VoiceSuite) TestJoinFailureIsReportedOnce() {
	s.transport.JoinErr = errors.New("voice gateway refused")

	s.NoError(s.run("join"))

	s.Len(s.rec.Deferrals(), 1)
	s.Len(s.rec.Replies(), 1)
	last, _ := s.rec.Last()
	s.True(last.Ephemeral)
	s.Equal(command.ErrorEmbed(voice.MsgConnectFailed).Description, s.rec.Description())
	s.Len(s.transport.Joins(), 1)
	s.Equal(player.StateIdle, s.mustPlayer().State())
}

func (s *VoiceSuite) TestJoinReusesExistingPlayer() {
	p, err := s.players.Create("G")
	s.Require().NoError(err)

	s.NoError(s.run("join"))

	s.Same(p, s.mustPlayer())
	s.Equal(player.StateReady, p.State())
}

func (s *VoiceSuite) TestLeaveDeletesPlayer() {
	s.Require().NoError(s.run("join"))
	h := s.transport.Handle("G")
	s.Require().NotNil(h)

	rec := &commandtest.Recorder{}
	s.NoError(s.disp.Dispatch(context.Background(), "leave", commandtest.NewContext("G", rec)))

	s.False(s.players.Has("G"))
	s.Equal(player.StateDestroyed, h.State())
	s.Equal(command.DefaultEmbed(voice.MsgLeft).Description, rec.Description())
}

func (s *VoiceSuite) TestLeaveAfterPlayerWasRemoved() {
	s.Require().NoError(s.run("join"))
	// The reconnect race or another leave got there first.
	s.Require().NoError(s.players.Delete("G"))

	rec := &commandtest.Recorder{}
	s.NoError(s.disp.Dispatch(context.Background(), "leave", commandtest.NewContext("G", rec)))

	s.Len(rec.Replies(), 1)
	last, _ := rec.Last()
	s.True(last.Ephemeral)
	s.Equal(command.ErrorEmbed(voice.MsgNotConnected).Description, rec.Description())
}

func (s *VoiceSuite) TestLeaveWithoutPlayer() {
	s.NoError(s.run("leave"))

	last, _ := s.rec.Last()
	s.True(last.Ephemeral)
	s.Equal(command.ErrorEmbed(voice.MsgNotConnected).Description, s.rec.Description())
}

func (s *VoiceSuite) mustPlayer() *player.Player {
	p, err := s.players.Get("G")
	s.Require().NoError(err)
	return p
}
