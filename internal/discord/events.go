package discord

import (
	"context"

	"github.com/keshon/musicbot/internal/command"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog/log"
)

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.isGuildBlacklisted(g.ID) {
			b.leaveGuild(s, g.ID)
		}
	}
	log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("[Bot] ✅ Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.isGuildBlacklisted(g.ID) {
		b.leaveGuild(s, g.ID)
		return
	}
	log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("[Bot] guild available")

	if !b.cfg.InitSlashCommands {
		log.Debug().Str("guild", g.ID).Msg("[Bot] slash command registration skipped")
		return
	}
	guildID := g.ID
	err := b.jobs.StartAsync("sync-commands:"+guildID, func(ctx context.Context) error {
		return b.syncCommands(ctx, guildID)
	})
	if err != nil {
		log.Debug().Err(err).Str("guild", guildID).Msg("[Bot] slash command sync not started")
	}
}

func (b *Bot) leaveGuild(s *discordgo.Session, guildID string) {
	log.Info().Str("guild", guildID).Msg("[Bot] leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		log.Error().Err(err).Str("guild", guildID).Msg("[Bot] failed to leave guild")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.CommandType != discordgo.ChatApplicationCommand && data.CommandType != 0 {
		return
	}

	c := b.commands.Get(data.Name)
	if c == nil {
		log.Warn().Str("cmd", data.Name).Msg("[Bot] unknown command")
		return
	}

	slash := &command.SlashInteractionContext{
		Session:   s,
		Event:     i,
		Storage:   b.storage,
		Responder: b.responderFor(s),
	}
	if err := command.Invoke(context.Background(), c, slash); err != nil {
		log.Error().Err(err).Str("cmd", data.Name).Str("guild", i.GuildID).Msg("[Bot] slash command failed")
	}
}

func (b *Bot) responderFor(s *discordgo.Session) command.Responder {
	if b.responder != nil {
		return b.responder(s)
	}
	return command.SessionResponder{Session: s}
}

// onVoiceStateUpdate drops the guild's session when the bot is removed
// from voice by someone else.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || v.UserID != s.State.User.ID || v.ChannelID != "" {
		return
	}
	guildID, err := snowflake.Parse(v.GuildID)
	if err != nil {
		return
	}
	p, ok := b.sessions.Get(guildID)
	if !ok || p.ChannelID() == "" {
		return
	}
	if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != p.ChannelID() {
		return
	}
	log.Info().Str("guild", v.GuildID).Msg("[Bot] disconnected from voice externally, dropping session")
	b.sessions.Remove(guildID)
}
