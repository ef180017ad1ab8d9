// Package catalog lists the bot's commands.
package catalog

import (
	"github.com/rs/zerolog"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/internal/command/general"
	"github.com/keshon/voicebot/internal/command/voice"
	"github.com/keshon/voicebot/internal/player"
	"github.com/keshon/voicebot/pkg/cmd"
)

// Deps are the collaborators commands need at run time. Listing or
// registering commands works with zero-valued deps.
type Deps struct {
	Players          *player.Registry
	Gateway          general.Heartbeater
	SupportServerURL string
	Log              zerolog.Logger
}

// Build registers every command, wrapped with the command logger.
func Build(d Deps) (*cmd.Registry, error) {
	r := cmd.NewRegistry()
	logged := command.WithCommandLogger(d.Log.With().Str("component", "command").Logger())

	commands := []cmd.Command{
		&general.SupportServerCommand{URL: d.SupportServerURL},
		&general.PingCommand{Gateway: d.Gateway},
		&general.HelpCommand{Registry: r},
		&voice.JoinCommand{Players: d.Players, Log: d.Log},
		&voice.LeaveCommand{Players: d.Players},
	}
	for _, c := range commands {
		if err := r.Register(cmd.Apply(c, logged)); err != nil {
			return nil, err
		}
	}
	return r, nil
}
