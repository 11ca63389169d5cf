package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/internal/storage"
	"github.com/keshon/musicbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// WithCommandLogger records every slash command in the guild's history
// after it has run.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)

			v, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok || v.Storage == nil || v.Event.GuildID == "" {
				return err
			}
			entry := historyEntry(v.Session, v.Event, c.Name())
			if logErr := v.Storage.AppendCommandToHistory(v.Event.GuildID, entry); logErr != nil {
				log.Warn().Err(logErr).Str("command", c.Name()).Msg("[Command] failed to log command")
			}
			return err
		})
	}
}

func historyEntry(s *discordgo.Session, e *discordgo.InteractionCreate, name string) storage.CommandHistory {
	user := command.UserOf(e)
	entry := storage.CommandHistory{
		ChannelID: e.ChannelID,
		UserID:    user.ID,
		Username:  user.Username,
		Command:   name,
		Param:     optionString(e),
		Datetime:  time.Now(),
	}
	if s != nil && s.State != nil {
		if ch, err := s.State.Channel(e.ChannelID); err == nil {
			entry.ChannelName = ch.Name
		}
		if g, err := s.State.Guild(e.GuildID); err == nil {
			entry.GuildName = g.Name
		}
	}
	return entry
}

func optionString(e *discordgo.InteractionCreate) string {
	if e.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	var parts []string
	for _, opt := range e.ApplicationCommandData().Options {
		parts = append(parts, opt.Name+"="+strings.TrimSpace(optionValue(opt)))
	}
	return strings.Join(parts, " ")
}

func optionValue(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch opt.Type {
	case discordgo.ApplicationCommandOptionString:
		return opt.StringValue()
	case discordgo.ApplicationCommandOptionNumber:
		return strconv.FormatFloat(opt.FloatValue(), 'f', -1, 64)
	case discordgo.ApplicationCommandOptionInteger:
		return strconv.FormatInt(opt.IntValue(), 10)
	default:
		return ""
	}
}
