// Package commandtest provides helpers for testing Discord commands
// without a gateway connection.
package commandtest

import (
	"sync"

	"github.com/keshon/musicbot/internal/command"

	"github.com/bwmarrin/discordgo"
)

// Message is one recorded reply.
type Message struct {
	Kind      string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Recorder is a command.Responder that keeps every reply in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

var _ command.Responder = (*Recorder)(nil)

func (r *Recorder) record(kind string, embed *discordgo.MessageEmbed, ephemeral bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Kind: kind, Embed: embed, Ephemeral: ephemeral})
	return nil
}

func (r *Recorder) Respond(_ *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	return r.record("respond", embed, ephemeral)
}

func (r *Recorder) Defer(_ *discordgo.InteractionCreate, ephemeral bool) error {
	return r.record("defer", nil, ephemeral)
}

func (r *Recorder) Followup(_ *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) error {
	return r.record("followup", embed, ephemeral)
}

// Last returns the most recent reply that carried an embed.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Embed != nil {
			return r.Messages[i], true
		}
	}
	return Message{}, false
}

func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		kinds = append(kinds, m.Kind)
	}
	return kinds
}

// Option builds a slash command option for Slash.
func Option(name string, value any) *discordgo.ApplicationCommandInteractionDataOption {
	opt := &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: value}
	switch v := value.(type) {
	case string:
		opt.Type = discordgo.ApplicationCommandOptionString
	case float64:
		opt.Type = discordgo.ApplicationCommandOptionNumber
	case int:
		// Discord delivers integers as JSON numbers.
		opt.Type = discordgo.ApplicationCommandOptionInteger
		opt.Value = float64(v)
	}
	return opt
}

// Slash builds a slash command context for guildID issued by userID from
// channelID. An empty guildID simulates a direct message.
func Slash(rec *Recorder, name, guildID, channelID, userID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *command.SlashInteractionContext {
	user := &discordgo.User{ID: userID, Username: "user" + userID}
	in := &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: channelID,
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
		},
	}
	if guildID != "" {
		in.Member = &discordgo.Member{User: user}
	} else {
		in.User = user
	}
	return &command.SlashInteractionContext{
		Event:     &discordgo.InteractionCreate{Interaction: in},
		Responder: rec,
	}
}
