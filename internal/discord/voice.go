package discord

import (
	"fmt"

	"github.com/keshon/musicbot/internal/command/music"

	"github.com/bwmarrin/discordgo"
)

const voicePermissions = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak

// UserVoiceChannel finds the voice channel userID is in from the state cache.
func (b *Bot) UserVoiceChannel(guildID, userID string) (string, bool) {
	vs, err := b.dg.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// CanJoin checks that the bot may connect and speak in channelID.
func (b *Bot) CanJoin(_, channelID string) error {
	perms, err := b.dg.State.UserChannelPermissions(b.dg.State.User.ID, channelID)
	if err != nil {
		perms, err = b.dg.UserChannelPermissions(b.dg.State.User.ID, channelID)
		if err != nil {
			return fmt.Errorf("failed to read permissions for channel %s: %w", channelID, err)
		}
	}
	return checkVoicePermissions(perms)
}

func checkVoicePermissions(perms int64) error {
	if perms&discordgo.PermissionAdministrator != 0 || perms&voicePermissions == voicePermissions {
		return nil
	}
	var missing []string
	if perms&discordgo.PermissionVoiceConnect == 0 {
		missing = append(missing, "Connect")
	}
	if perms&discordgo.PermissionVoiceSpeak == 0 {
		missing = append(missing, "Speak")
	}
	return fmt.Errorf("%w: %v", music.ErrNoVoicePermission, missing)
}
