package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/keshon/musicbot/internal/config"
	"github.com/keshon/musicbot/internal/logging"
	"github.com/keshon/musicbot/internal/music/source_resolver"
	"github.com/keshon/musicbot/internal/music/sources"
	"github.com/keshon/musicbot/internal/music/stream"

	"github.com/charmbracelet/huh/spinner"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "musicbot-cli",
		Usage: "Tools for checking the music bot's setup without connecting to Discord.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "log level"},
		},
		Before: func(c *cli.Context) error {
			_, err := logging.Setup(logging.Options{Level: c.String("log-level")})
			return err
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "Resolve a link or search query the way /play does",
				ArgsUsage: "<query or link>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proxy", EnvVars: []string{"YOUTUBE_PROXY"}, Usage: "proxy for YouTube requests"},
					&cli.IntFlag{Name: "attempts", Value: 3, Usage: "attempts for transient failures"},
					&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
					&cli.BoolFlag{Name: "ffmpeg", Usage: "print the ffmpeg command used to stream the track"},
				},
				Action: resolve,
			},
			{
				Name:  "config",
				Usage: "Check that the environment holds a usable configuration",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					fmt.Printf("storage:        %s\n", cfg.StoragePath)
					fmt.Printf("idle timeout:   %s\n", cfg.IdleDisconnectAfter)
					fmt.Printf("cooldown:       %d per %s\n", cfg.CooldownUses, cfg.CooldownWindow)
					fmt.Printf("blacklist:      %s\n", strings.Join(cfg.DiscordGuildBlacklist, ", "))
					fmt.Printf("slash commands: %t\n", cfg.InitSlashCommands)
					fmt.Println("config OK")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func resolve(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("nothing to resolve, pass a link or a search query")
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	resolver := source_resolver.NewDefault(c.String("proxy"), c.Int("attempts"))

	var track sources.Track
	err := spinner.New().
		Title("Resolving...").
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			var err error
			track, err = resolver.Resolve(ctx, query, "cli")
			return err
		}).
		Run()
	if err != nil {
		return err
	}

	fmt.Printf("title:    %s\n", track.Title)
	fmt.Printf("url:      %s\n", track.URL)
	fmt.Printf("duration: %s\n", sources.FormatDuration(track.Duration))
	fmt.Printf("parser:   %s\n", track.Parser)
	if c.Bool("ffmpeg") {
		fmt.Printf("ffmpeg:   ffmpeg %s\n", strings.Join(stream.FFmpegArgs(track.StreamURL, 1.0, 0), " "))
	}
	return nil
}
