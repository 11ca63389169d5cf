package discord

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const registerAttempts = 4

// definitions collects the slash definitions of every registered command.
func (b *Bot) definitions() []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range b.commands.GetAll() {
		if def := command.Definition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

// syncCommands overwrites the guild's slash commands when they differ
// from what was last registered there.
func (b *Bot) syncCommands(ctx context.Context, guildID string) error {
	defs := b.definitions()
	wanted := make(map[string]string, len(defs))
	for _, def := range defs {
		wanted[def.Name] = hashCommand(def)
	}

	cached := loadGuildCommandHashes(b.cacheDir, guildID)
	if maps.Equal(cached, wanted) {
		log.Debug().Str("guild", guildID).Msg("[Bot] slash commands up to date")
		return nil
	}

	appID := b.dg.State.User.ID
	err := retrylimit.WithRetryMax(ctx, func() error {
		_, err := b.dg.ApplicationCommandBulkOverwrite(appID, guildID, defs)
		return restStatus(err)
	}, b.limiter, registerAttempts)
	if err != nil {
		return fmt.Errorf("bulk overwrite: %w", err)
	}

	if err := saveGuildCommandHashes(b.cacheDir, guildID, wanted); err != nil {
		log.Warn().Err(err).Str("guild", guildID).Msg("[Bot] failed to cache command hashes")
	}
	log.Info().Str("guild", guildID).Int("commands", len(defs)).Msg("[Bot] slash commands registered")
	return nil
}

// statusError exposes the HTTP status of a Discord REST error to the
// retry classifier.
type statusError struct {
	err  error
	code int
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

func restStatus(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return &statusError{err: err, code: rest.Response.StatusCode}
	}
	return err
}
