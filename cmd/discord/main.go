package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/musicbot/internal/config"
	"github.com/keshon/musicbot/internal/discord"
	"github.com/keshon/musicbot/internal/logging"
	"github.com/keshon/musicbot/internal/music/source_resolver"
	"github.com/keshon/musicbot/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingToken) {
			log.Fatal().Msg("DISCORD_TOKEN is required, set it in the environment or .env")
		}
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logCloser, err := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logCloser.Close()

	log.Info().Str("app", config.AppName).Msg("starting bot")

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StoragePath).Msg("failed to open storage")
	}
	defer store.Close()

	resolver := source_resolver.NewDefault(cfg.YouTubeProxy, cfg.ResolveAttempts)

	bot, err := discord.New(cfg, store, resolver)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("discord bot stopped with error")
		return
	}
	log.Info().Msg("bye")
}
