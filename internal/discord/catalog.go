package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/internal/command"
	"github.com/keshon/voicebot/pkg/cmd"
)

// Definitions returns the slash definitions of every registered command
// that provides one, walking through middleware wrappers.
func Definitions(r *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range r.GetAll() {
		slash, ok := cmd.Root(c).(command.SlashProvider)
		if !ok {
			continue
		}
		def := slash.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}
