package core

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/musicbot/internal/command"

	"github.com/bwmarrin/discordgo"
)

// PingCommand reports the gateway heartbeat latency. Latency overrides the
// session's measurement when set.
type PingCommand struct {
	Latency func() time.Duration
}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check the bot's latency" }
func (c *PingCommand) Category() string    { return "🛠️ Maintenance" }

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *PingCommand) Run(_ context.Context, slash *command.SlashInteractionContext) error {
	var latency time.Duration
	switch {
	case c.Latency != nil:
		latency = c.Latency()
	case slash.Session != nil:
		latency = slash.Session.HeartbeatLatency()
	}
	return slash.Reply(&discordgo.MessageEmbed{
		Title:       "🏓 Pong!",
		Description: fmt.Sprintf("Heartbeat latency: **%dms**", latency.Milliseconds()),
		Color:       command.EmbedColor,
	}, false)
}
