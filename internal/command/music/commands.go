package music

import (
	"context"
	"fmt"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/internal/music/player"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

const (
	categoryMusic = "🎵 Music"
	categoryVoice = "🔊 Voice"
)

// VoiceLocator finds the voice channel a member is sitting in.
type VoiceLocator interface {
	UserVoiceChannel(guildID, userID string) (channelID string, ok bool)
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func (o options) text(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func (o options) number(name string) (float64, bool) {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionNumber {
		return 0, false
	}
	return opt.FloatValue(), true
}

// slashCommand is one music slash command. Commands that set deferred
// acknowledge first and answer with a followup.
type slashCommand struct {
	name        string
	description string
	category    string
	options     []*discordgo.ApplicationCommandOption
	deferred    bool
	run         func(ctx context.Context, req Request, opts options) Reply

	voice VoiceLocator
}

func (c *slashCommand) Name() string        { return c.name }
func (c *slashCommand) Description() string { return c.description }
func (c *slashCommand) Category() string    { return c.category }

func (c *slashCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.name,
		Description: c.description,
		Options:     c.options,
	}
}

func (c *slashCommand) Run(ctx context.Context, slash *command.SlashInteractionContext) error {
	e := slash.Event
	guildID, err := snowflake.Parse(e.GuildID)
	if err != nil {
		return slash.ReplyError("You must be in a guild to use this command.")
	}

	if c.deferred {
		if err := slash.Defer(false); err != nil {
			return fmt.Errorf("failed to defer /%s: %w", c.name, err)
		}
	}

	user := command.UserOf(e)
	req := Request{
		GuildID:       guildID,
		UserName:      command.DisplayName(e),
		TextChannelID: e.ChannelID,
	}
	if c.voice != nil {
		if channelID, ok := c.voice.UserVoiceChannel(e.GuildID, user.ID); ok {
			req.VoiceChannelID = channelID
		}
	}

	opts := options{}
	for _, opt := range e.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}

	reply := c.run(ctx, req, opts)
	embed := replyEmbed(reply)
	if c.deferred {
		return slash.Followup(embed, reply.Failed)
	}
	return slash.Reply(embed, reply.Failed)
}

func replyEmbed(r Reply) *discordgo.MessageEmbed {
	color := command.EmbedColor
	if r.Failed {
		color = command.ErrorColor
	}
	return &discordgo.MessageEmbed{
		Title:       r.Title,
		Description: r.Description,
		Color:       color,
	}
}

// Commands returns the music slash commands backed by svc.
func Commands(svc *Service, voice VoiceLocator) []command.DiscordCommand {
	minVolume, maxVolume := player.MinVolume, player.MaxVolume
	cmds := []*slashCommand{
		{
			name:        "play",
			description: "Play a song from YouTube by link or search",
			category:    categoryMusic,
			deferred:    true,
			options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Link or search query",
				Required:    true,
			}},
			run: func(ctx context.Context, req Request, opts options) Reply {
				return svc.Play(ctx, req, opts.text("query"))
			},
		},
		{
			name:        "queue",
			description: "Show the current song and the queue",
			category:    categoryMusic,
			run: func(_ context.Context, req Request, _ options) Reply {
				return svc.Queue(req)
			},
		},
		{
			name:        "skip",
			description: "Skip the current song",
			category:    categoryMusic,
			run: func(_ context.Context, req Request, _ options) Reply {
				return svc.Skip(req)
			},
		},
		{
			name:        "stop",
			description: "Stop playback, clear the queue and leave the voice channel",
			category:    categoryMusic,
			run: func(_ context.Context, req Request, _ options) Reply {
				return svc.Stop(req)
			},
		},
		{
			name:        "pause",
			description: "Pause the current song",
			category:    categoryMusic,
			run: func(_ context.Context, req Request, _ options) Reply {
				return svc.Pause(req)
			},
		},
		{
			name:        "resume",
			description: "Resume the paused song",
			category:    categoryMusic,
			run: func(_ context.Context, req Request, _ options) Reply {
				return svc.Resume(req)
			},
		},
		{
			name:        "volume",
			description: "Set the volume for new songs (0.0 to 1.5)",
			category:    categoryMusic,
			options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "value",
				Description: "Volume multiplier, 1.0 is unchanged",
				Required:    true,
				MinValue:    &minVolume,
				MaxValue:    maxVolume,
			}},
			run: func(_ context.Context, req Request, opts options) Reply {
				v, ok := opts.number("value")
				if !ok {
					return errorReply(fmt.Errorf("%w: volume value is required", player.ErrInvalidArgument))
				}
				return svc.Volume(req, v)
			},
		},
		{
			name:        "join",
			description: "Join your voice channel",
			category:    categoryVoice,
			run: func(_ context.Context, req Request, _ options) Reply {
				return svc.Join(req)
			},
		},
	}

	out := make([]command.DiscordCommand, 0, len(cmds))
	for _, c := range cmds {
		c.voice = voice
		out = append(out, c)
	}
	return out
}
