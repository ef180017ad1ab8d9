package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/voicebot/internal/command"
)

type recordingAPI struct {
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	followups []*discordgo.WebhookParams
	deletes   int
}

func (r *recordingAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recordingAPI) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.edits = append(r.edits, edit)
	return &discordgo.Message{}, nil
}

func (r *recordingAPI) InteractionResponseDelete(_ *discordgo.Interaction, _ ...discordgo.RequestOption) error {
	r.deletes++
	return nil
}

func (r *recordingAPI) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.followups = append(r.followups, params)
	return &discordgo.Message{}, nil
}

func guildInteraction() *discordgo.Interaction {
	return &discordgo.Interaction{
		GuildID:   "G",
		ChannelID: "text",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "U1", Username: "alice"}},
	}
}

func TestContextFromGuildInteraction(t *testing.T) {
	api := &recordingAPI{}

	c := contextFromInteraction(api, guildInteraction())
	assert.Equal(t, "G", c.GuildID)
	assert.Equal(t, "U1", c.UserID)
	assert.Equal(t, "alice", c.Username)

	require.NoError(t, c.RespondEmbedEphemeral(command.WarnEmbed("careful")))
	require.Len(t, api.responses, 1)
	resp := api.responses[0]
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Equal(t, "**❕ careful**", resp.Data.Embeds[0].Description)
}

func TestContextFromDirectMessage(t *testing.T) {
	api := &recordingAPI{}
	i := &discordgo.Interaction{User: &discordgo.User{ID: "U2", Username: "bob"}}

	c := contextFromInteraction(api, i)
	assert.Empty(t, c.GuildID)
	assert.Equal(t, "U2", c.UserID)

	require.NoError(t, c.RespondEmbed(command.DefaultEmbed("hi")))
	assert.Zero(t, api.responses[0].Data.Flags)
}

func TestDeferredReplyEditsOriginalResponse(t *testing.T) {
	api := &recordingAPI{}
	c := contextFromInteraction(api, guildInteraction())

	require.NoError(t, c.Defer(false))
	require.NoError(t, c.RespondEmbed(command.DefaultEmbed("Joined.")))

	require.Len(t, api.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, api.responses[0].Type)
	assert.Zero(t, api.responses[0].Data.Flags)

	require.Len(t, api.edits, 1)
	require.NotNil(t, api.edits[0].Embeds)
	assert.Equal(t, command.DefaultEmbed("Joined.").Description, (*api.edits[0].Embeds)[0].Description)
	assert.Nil(t, api.edits[0].Content)
	assert.Empty(t, api.followups)
}

func TestEphemeralReplyAfterPublicDeferral(t *testing.T) {
	api := &recordingAPI{}
	c := contextFromInteraction(api, guildInteraction())

	require.NoError(t, c.Defer(false))
	require.NoError(t, c.RespondEmbedEphemeral(command.ErrorEmbed("nope")))

	assert.Empty(t, api.edits)
	require.Len(t, api.followups, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, api.followups[0].Flags)
	assert.Equal(t, 1, api.deletes)
}

func TestEphemeralDeferralIsEdited(t *testing.T) {
	api := &recordingAPI{}
	c := contextFromInteraction(api, guildInteraction())

	require.NoError(t, c.Defer(true))
	require.NoError(t, c.RespondEmbedEphemeral(command.ErrorEmbed("nope")))

	assert.Equal(t, discordgo.MessageFlagsEphemeral, api.responses[0].Data.Flags)
	assert.Len(t, api.edits, 1)
	assert.Empty(t, api.followups)
	assert.Zero(t, api.deletes)
}
