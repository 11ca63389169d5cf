// Package discord runs the gateway session: it registers slash commands,
// dispatches interactions and ties playback sessions to voice state.
package discord

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/internal/command/core"
	"github.com/keshon/musicbot/internal/command/music"
	"github.com/keshon/musicbot/internal/config"
	"github.com/keshon/musicbot/internal/middleware"
	"github.com/keshon/musicbot/internal/music/player"
	"github.com/keshon/musicbot/internal/music/stream"
	"github.com/keshon/musicbot/internal/storage"
	"github.com/keshon/musicbot/pkg/cmd"
	"github.com/keshon/musicbot/pkg/jobmgr"
	"github.com/keshon/musicbot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const sweepSchedule = "@every 1m"

type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	commands *cmd.Registry
	sessions *player.Registry
	limiter  *retrylimit.AdaptiveLimiter
	jobs     *jobmgr.Manager
	cacheDir string

	// responder replaces the REST responder in tests.
	responder func(*discordgo.Session) command.Responder
}

// New prepares the bot. Nothing talks to Discord until Run.
func New(cfg *config.Config, store *storage.Storage, resolver music.Resolver) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	b := &Bot{
		dg:       dg,
		cfg:      cfg,
		storage:  store,
		commands: cmd.NewRegistry(),
		limiter:  retrylimit.NewAdaptiveLimiter(1, 0.2, 5, 0.5, 0.5),
		jobs:     jobmgr.NewManager(),
		cacheDir: filepath.Join(filepath.Dir(cfg.StoragePath), "commands"),
	}
	b.sessions = player.NewRegistry(
		stream.NewConnector(dg),
		player.WithIdleTimeout(cfg.IdleDisconnectAfter),
		player.WithOnCreate(b.announce),
	)

	svc := &music.Service{Sessions: b.sessions, Resolver: resolver, Permissions: b}
	if err := b.registerCommands(svc); err != nil {
		return nil, err
	}

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onVoiceStateUpdate)
	return b, nil
}

func (b *Bot) registerCommands(svc *music.Service) error {
	cooldown := middleware.NewCooldown(b.cfg.CooldownUses, b.cfg.CooldownWindow)
	mws := []cmd.Middleware{
		middleware.WithRecover(),
		middleware.WithGuildOnly(),
		middleware.WithCooldown(cooldown, "play", "skip"),
		middleware.WithCommandLogger(),
	}

	all := music.Commands(svc, b)
	all = append(all, &core.PingCommand{}, &core.HelpCommand{Registry: b.commands})
	for _, c := range all {
		if err := command.RegisterCommand(b.commands, c, mws...); err != nil {
			return fmt.Errorf("failed to register /%s: %w", c.Name(), err)
		}
	}
	return nil
}

// Run opens the gateway and blocks until ctx is done. All playback
// sessions are stopped on the way out.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	if err := b.sessions.StartSweeper(sweepSchedule); err != nil {
		_ = b.dg.Close()
		return fmt.Errorf("failed to start idle sweeper: %w", err)
	}

	<-ctx.Done()
	log.Info().Msg("[Bot] shutdown signal received, cleaning up")
	b.jobs.Shutdown()

	if err := b.sessions.Close(); err != nil {
		log.Warn().Err(err).Msg("[Bot] some sessions did not stop cleanly")
	}
	return b.dg.Close()
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.DiscordGuildBlacklist, guildID)
}
