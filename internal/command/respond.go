package command

import (
	"github.com/bwmarrin/discordgo"
)

const (
	EmbedColor = 0xb01e66
	ErrorColor = 0xd0312d
)

// Responder answers interactions. SessionResponder talks to Discord; tests
// plug in a recorder.
type Responder interface {
	Respond(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error
	Defer(e *discordgo.InteractionCreate, ephemeral bool) error
	Followup(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error
}

type SessionResponder struct {
	Session *discordgo.Session
}

func (r SessionResponder) Respond(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.Session.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (r SessionResponder) Defer(e *discordgo.InteractionCreate, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return r.Session.InteractionRespond(e.Interaction, resp)
}

func (r SessionResponder) Followup(e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	params := &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.Session.FollowupMessageCreate(e.Interaction, true, params)
	return err
}

// Reply answers the interaction with a single embed.
func (c *SlashInteractionContext) Reply(embed *discordgo.MessageEmbed, ephemeral bool) error {
	return c.Responder.Respond(c.Event, embed, ephemeral)
}

// Defer acknowledges the interaction; the answer follows with Followup.
func (c *SlashInteractionContext) Defer(ephemeral bool) error {
	return c.Responder.Defer(c.Event, ephemeral)
}

func (c *SlashInteractionContext) Followup(embed *discordgo.MessageEmbed, ephemeral bool) error {
	return c.Responder.Followup(c.Event, embed, ephemeral)
}

// ReplyError answers with an ephemeral error embed.
func (c *SlashInteractionContext) ReplyError(msg string) error {
	return c.Reply(&discordgo.MessageEmbed{Description: msg, Color: ErrorColor}, true)
}
