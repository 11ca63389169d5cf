package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/keshon/musicbot/internal/music/player"
	"github.com/keshon/musicbot/internal/music/sources"
	"github.com/keshon/musicbot/pkg/retrylimit"
	"github.com/rs/zerolog/log"
)

// SourceResolver turns a slash command query into a single playable track.
type SourceResolver struct {
	Sources map[string]sources.Source
	order   []string
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.RetryConfig
}

// New registers srcs in priority order. attempts bounds retries of
// transient upstream failures.
func New(attempts int, srcs ...sources.Source) *SourceResolver {
	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = attempts
	retry.InitialDelay = 500 * time.Millisecond
	retry.MaxDelay = 3 * time.Second

	r := &SourceResolver{
		Sources: make(map[string]sources.Source, len(srcs)),
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5),
		retry:   retry,
	}
	for _, s := range srcs {
		r.Sources[s.SourceName()] = s
		r.order = append(r.order, s.SourceName())
	}
	return r
}

// Resolve returns the first track for input attributed to requester.
// Every failure wraps player.ErrTrackResolutionFailed.
func (r *SourceResolver) Resolve(ctx context.Context, input, requester string) (sources.Track, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return sources.Track{}, fmt.Errorf("%w: empty query", player.ErrInvalidArgument)
	}

	src, err := r.pick(input)
	if err != nil {
		return sources.Track{}, fmt.Errorf("%w: %w", player.ErrTrackResolutionFailed, err)
	}

	var tracks []sources.Track
	err = retrylimit.WithRetryConfig(ctx, func() error {
		var rerr error
		tracks, rerr = src.Resolve(ctx, input)
		if rerr != nil && !isTransient(rerr) {
			return retrylimit.Fatal(rerr)
		}
		return rerr
	}, r.limiter, r.retry)
	if err != nil {
		log.Warn().Err(err).Str("query", input).Str("source", src.SourceName()).Msg("[Resolver] resolution failed")
		return sources.Track{}, fmt.Errorf("%w: %w", player.ErrTrackResolutionFailed, err)
	}
	if len(tracks) == 0 {
		return sources.Track{}, fmt.Errorf("%w: no results for %q", player.ErrTrackResolutionFailed, input)
	}

	track := tracks[0].WithRequester(requester)
	log.Info().Str("track", track.ID).Str("title", track.Title).Str("parser", track.Parser).Msg("[Resolver] resolved")
	return track, nil
}

// pick sends links to the source that matches them and title searches to YouTube.
func (r *SourceResolver) pick(input string) (sources.Source, error) {
	if !isURL(input) {
		yt, ok := r.Sources[sources.SourceYouTube]
		if !ok {
			return nil, errors.New(sources.SourceYouTube + " source not available for title search")
		}
		return yt, nil
	}
	for _, name := range r.order {
		if s := r.Sources[name]; s.Match(input) {
			return s, nil
		}
	}
	return nil, errors.New("no matching source found")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// isTransient reports failures worth another attempt: throttling, server
// errors and network hiccups.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if retrylimit.DefaultClassifier(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
