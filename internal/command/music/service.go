package music

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keshon/musicbot/internal/music/player"
	"github.com/keshon/musicbot/internal/music/sources"

	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog/log"
)

const (
	queuePreview   = 10
	resolveTimeout = 30 * time.Second
)

// ErrNoVoicePermission is returned by a PermissionChecker when the bot may
// not connect or speak in the channel.
var ErrNoVoicePermission = errors.New("missing voice permissions")

type Resolver interface {
	Resolve(ctx context.Context, input, requester string) (sources.Track, error)
}

type PermissionChecker interface {
	CanJoin(guildID, channelID string) error
}

// Service holds the music logic behind the slash commands. It talks to
// sessions only; Discord specifics stay in the command adapters.
type Service struct {
	Sessions    *player.Registry
	Resolver    Resolver
	Permissions PermissionChecker
}

// Request describes who asked and from where.
type Request struct {
	GuildID        snowflake.ID
	UserName       string
	VoiceChannelID string
	TextChannelID  string
}

// Reply is what a command answers. Failed replies are shown only to the
// user that asked.
type Reply struct {
	Title       string
	Description string
	Failed      bool
}

func (s *Service) Play(ctx context.Context, req Request, query string) Reply {
	if strings.TrimSpace(query) == "" {
		return errorReply(fmt.Errorf("%w: give me a link or something to search for", player.ErrInvalidArgument))
	}
	if r, ok := s.checkVoice(req); !ok {
		return r
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	track, err := s.Resolver.Resolve(ctx, query, req.UserName)
	if err != nil {
		return errorReply(err)
	}

	_, existed := s.Sessions.Get(req.GuildID)
	p := s.Sessions.GetOrCreate(req.GuildID)
	if err := p.Connect(req.VoiceChannelID); err != nil {
		if !existed {
			s.Sessions.Remove(req.GuildID)
		}
		return errorReply(err)
	}
	p.SetAnnounceChannel(req.TextChannelID)

	action, err := p.Enqueue(track)
	if err != nil {
		return errorReply(err)
	}

	title := player.StatusPlaying.StringEmoji() + " Now playing"
	if action == player.ActionQueued {
		title = player.StatusAdded.StringEmoji() + " Queued"
	}
	return Reply{Title: title, Description: trackLine(track)}
}

func (s *Service) Join(req Request) Reply {
	if r, ok := s.checkVoice(req); !ok {
		return r
	}
	_, existed := s.Sessions.Get(req.GuildID)
	p := s.Sessions.GetOrCreate(req.GuildID)
	if err := p.Connect(req.VoiceChannelID); err != nil {
		if !existed {
			s.Sessions.Remove(req.GuildID)
		}
		return errorReply(err)
	}
	p.SetAnnounceChannel(req.TextChannelID)
	return Reply{Title: "🔊 Joined", Description: fmt.Sprintf("Joined <#%s>", req.VoiceChannelID)}
}

func (s *Service) Queue(req Request) Reply {
	p, ok := s.Sessions.Get(req.GuildID)
	if !ok {
		return Reply{Title: "📜 Queue", Description: "Nothing is playing."}
	}
	return Reply{Title: "📜 Queue", Description: renderQueue(p.Describe())}
}

func (s *Service) Skip(req Request) Reply {
	p, ok := s.Sessions.Get(req.GuildID)
	if !ok {
		return errorReply(player.ErrNothingPlaying)
	}
	skipped, err := p.Skip()
	if err != nil {
		return errorReply(err)
	}
	return Reply{Title: "⏭ Skipped", Description: skipped.String()}
}

func (s *Service) Stop(req Request) Reply {
	if _, ok := s.Sessions.Get(req.GuildID); !ok {
		return errorReply(player.ErrNotConnected)
	}
	if err := s.Sessions.Stop(req.GuildID); err != nil {
		log.Warn().Err(err).Str("guild", req.GuildID.String()).Msg("[Music] stop finished with error")
	}
	return Reply{Title: player.StatusStopped.StringEmoji() + " Stopped", Description: "Stopped and disconnected."}
}

func (s *Service) Pause(req Request) Reply {
	p, ok := s.Sessions.Get(req.GuildID)
	if !ok {
		return errorReply(player.ErrNothingPlaying)
	}
	if err := p.Pause(); err != nil {
		return errorReply(err)
	}
	return Reply{Title: player.StatusPaused.StringEmoji() + " Paused"}
}

func (s *Service) Resume(req Request) Reply {
	p, ok := s.Sessions.Get(req.GuildID)
	if !ok {
		return errorReply(player.ErrNothingPlaying)
	}
	if err := p.Resume(); err != nil {
		return errorReply(err)
	}
	return Reply{Title: player.StatusResumed.StringEmoji() + " Resumed"}
}

// Volume sets the multiplier for songs started from now on. Only guilds
// with a session (after /play or /join) have a volume to set.
func (s *Service) Volume(req Request, v float64) Reply {
	if err := player.ValidateVolume(v); err != nil {
		return errorReply(err)
	}
	p, ok := s.Sessions.Get(req.GuildID)
	if !ok {
		return errorReply(player.ErrNotConnected)
	}
	if err := p.SetVolume(v); err != nil {
		return errorReply(err)
	}
	return Reply{
		Title:       "🔉 Volume",
		Description: fmt.Sprintf("Volume set to %.2f. It applies to new songs.", p.Volume()),
	}
}

func (s *Service) checkVoice(req Request) (Reply, bool) {
	if req.VoiceChannelID == "" {
		return errorReply(player.ErrNotConnected), false
	}
	if s.Permissions == nil {
		return Reply{}, true
	}
	if err := s.Permissions.CanJoin(req.GuildID.String(), req.VoiceChannelID); err != nil {
		return errorReply(err), false
	}
	return Reply{}, true
}

func trackLine(t sources.Track) string {
	line := fmt.Sprintf("%s `%s`", t.String(), sources.FormatDuration(t.Duration))
	if t.Requester != "" {
		line += " requested by " + t.Requester
	}
	return line
}

func renderQueue(s player.Snapshot) string {
	if s.Current == nil {
		return "Nothing is playing."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Now %s:** %s\n", s.State, trackLine(*s.Current))
	if len(s.Queue) == 0 {
		b.WriteString("\nThe queue is empty.\n")
	}
	for i, t := range s.Queue {
		if i == queuePreview {
			fmt.Fprintf(&b, "... and %d more\n", len(s.Queue)-queuePreview)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, trackLine(t))
	}
	fmt.Fprintf(&b, "\nVolume: %.2f", s.Volume)
	return b.String()
}

// errorReply turns a session or resolver error into what the user sees.
func errorReply(err error) Reply {
	r := Reply{Title: player.StatusError.StringEmoji() + " Error", Failed: true}
	switch {
	case errors.Is(err, player.ErrNotConnected):
		r.Description = "Join a voice channel first."
	case errors.Is(err, ErrNoVoicePermission):
		r.Description = "I need the Connect and Speak permissions in your voice channel."
	case errors.Is(err, player.ErrTrackResolutionFailed):
		r.Description = "Could not find anything playable for that request."
		log.Info().Err(err).Msg("[Music] track resolution failed")
	case errors.Is(err, player.ErrInvalidArgument):
		r.Description = strings.TrimPrefix(err.Error(), player.ErrInvalidArgument.Error()+": ")
	case errors.Is(err, player.ErrNothingPlaying):
		r.Description = "Nothing is playing."
	case errors.Is(err, player.ErrVoiceTransport):
		r.Description = "Playback error. Please try again."
		log.Error().Err(err).Msg("[Music] voice transport failure")
	default:
		r.Description = "Something went wrong."
		log.Error().Err(err).Msg("[Music] unexpected error")
	}
	return r
}
