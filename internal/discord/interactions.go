package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/voicebot/internal/command"
)

// InteractionAPI is the part of *discordgo.Session used to answer interactions.
type InteractionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interactionResponder answers one interaction, either with a channel
// message right away or by editing a deferred response.
type interactionResponder struct {
	api         InteractionAPI
	interaction *discordgo.Interaction

	deferred          bool
	deferredEphemeral bool
}

func (r *interactionResponder) Defer(ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		return err
	}
	r.deferred = true
	r.deferredEphemeral = ephemeral
	return nil
}

func (r *interactionResponder) Respond(reply command.Reply) error {
	if !r.deferred {
		data := &discordgo.InteractionResponseData{
			Content: reply.Content,
			Embeds:  reply.Embeds,
		}
		if reply.Ephemeral {
			data.Flags = discordgo.MessageFlagsEphemeral
		}
		return r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		})
	}

	// A public deferral cannot become ephemeral: answer with an ephemeral
	// followup and remove the loading message.
	if reply.Ephemeral && !r.deferredEphemeral {
		_, err := r.api.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
			Content: reply.Content,
			Embeds:  reply.Embeds,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		if err != nil {
			return err
		}
		return r.api.InteractionResponseDelete(r.interaction)
	}

	embeds := reply.Embeds
	edit := &discordgo.WebhookEdit{Embeds: &embeds}
	if reply.Content != "" {
		edit.Content = &reply.Content
	}
	_, err := r.api.InteractionResponseEdit(r.interaction, edit)
	return err
}

// contextFromInteraction builds the command context of an application
// command interaction. In DMs the user comes from i.User, in guilds from
// i.Member.
func contextFromInteraction(api InteractionAPI, i *discordgo.Interaction) *command.Context {
	c := &command.Context{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Responder: &interactionResponder{api: api, interaction: i},
	}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user != nil {
		c.UserID = user.ID
		c.Username = user.Username
	}
	return c
}
