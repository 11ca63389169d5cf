package discord

import (
	"fmt"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/internal/music/player"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog/log"
)

// announce follows a session's status events and posts the ones nobody
// asked for (queue advance, stream errors, queue end) to the text channel
// of the last /play or /join. It stops when the session is closed.
func (b *Bot) announce(guildID snowflake.ID, p *player.Player) {
	go func() {
		for {
			select {
			case ev := <-p.PlayerStatus:
				embed, ok := announcement(ev)
				if !ok {
					continue
				}
				channelID := p.AnnounceChannel()
				if channelID == "" {
					continue
				}
				if _, err := b.dg.ChannelMessageSendEmbed(channelID, embed); err != nil {
					log.Warn().Err(err).Str("guild", guildID.String()).Msg("[Bot] failed to post announcement")
				}
			case <-p.Done():
				return
			}
		}
	}()
}

// announcement renders a status event for the text channel. Events that
// already produced a command reply are skipped.
func announcement(ev player.StatusEvent) (*discordgo.MessageEmbed, bool) {
	title := ev.Status.StringEmoji() + " " + string(ev.Status)
	switch ev.Status {
	case player.StatusPlaying:
		if !ev.FromQueue {
			return nil, false
		}
		desc := ev.Track.String()
		if ev.Track.Requester != "" {
			desc += " requested by " + ev.Track.Requester
		}
		return &discordgo.MessageEmbed{Title: title, Description: desc, Color: command.EmbedColor}, true
	case player.StatusError:
		desc := "Playback failed."
		if ev.Track.Title != "" {
			desc = fmt.Sprintf("Could not play %s, moving on.", ev.Track.String())
		}
		return &discordgo.MessageEmbed{Title: title, Description: desc, Color: command.ErrorColor}, true
	case player.StatusIdle:
		return &discordgo.MessageEmbed{Title: title, Description: "Nothing left to play.", Color: command.EmbedColor}, true
	default:
		return nil, false
	}
}
