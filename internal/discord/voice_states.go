package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/internal/command"
)

// VoiceStates answers dispatcher voice questions from the session state cache.
type VoiceStates struct {
	state *discordgo.State
}

var _ command.VoiceStates = (*VoiceStates)(nil)

// NewVoiceStates reads from state, which must track voice states.
func NewVoiceStates(state *discordgo.State) *VoiceStates {
	return &VoiceStates{state: state}
}

func (v *VoiceStates) UserVoiceChannel(guildID, userID string) (string, bool) {
	vs, err := v.state.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

func (v *VoiceStates) BotVoiceChannel(guildID string) (string, bool) {
	if v.state.User == nil {
		return "", false
	}
	return v.UserVoiceChannel(guildID, v.state.User.ID)
}

func (v *VoiceStates) ChannelMemberCount(guildID, channelID string) int {
	guild, err := v.state.Guild(guildID)
	if err != nil {
		return 0
	}
	v.state.RLock()
	defer v.state.RUnlock()
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			n++
		}
	}
	return n
}
