package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/musicbot/internal/music/parsers"
	"github.com/keshon/musicbot/internal/music/sources"
	"github.com/rs/zerolog/log"
)

// YouTubeSource resolves YouTube links and title searches.
type YouTubeSource struct {
	search  *SearchResolver
	parsers []parsers.Parser
}

// New builds a source that tries parsers in order until one yields a stream.
func New(search *SearchResolver, chain ...parsers.Parser) *YouTubeSource {
	if search == nil {
		search = NewSearchResolver(nil)
	}
	return &YouTubeSource{search: search, parsers: chain}
}

func (y *YouTubeSource) SourceName() string { return sources.SourceYouTube }

func (y *YouTubeSource) Match(input string) bool {
	return isYouTubeURL(input)
}

func (y *YouTubeSource) Resolve(ctx context.Context, input string) ([]sources.Track, error) {
	if len(y.parsers) == 0 {
		return nil, errors.New(sources.SourceYouTube + " has no available parsers")
	}

	input = strings.TrimSpace(input)

	if isYouTubeVideoURL(input) {
		track, err := y.parse(ctx, CleanVideoURL(input))
		if err != nil {
			return nil, err
		}
		return []sources.Track{track}, nil
	}

	if isURL(input) {
		return nil, errors.New("invalid YouTube URL format")
	}

	videoURL, err := y.search.SearchFirstVideoURL(ctx, input)
	if err != nil {
		log.Debug().Err(err).Str("query", input).Msg("results page search failed, trying parser search")
		track, serr := y.searchWithParsers(ctx, input)
		if serr != nil {
			return nil, fmt.Errorf("could not find YouTube video for query: %w", errors.Join(err, serr))
		}
		return []sources.Track{track}, nil
	}

	track, err := y.parse(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	return []sources.Track{track}, nil
}

// parse walks the parser chain for a watch URL.
func (y *YouTubeSource) parse(ctx context.Context, videoURL string) (sources.Track, error) {
	var errs []error
	for _, p := range y.parsers {
		info, err := p.Parse(ctx, videoURL)
		if err == nil {
			return toTrack(info, videoURL, p.Name()), nil
		}
		if ctx.Err() != nil {
			return sources.Track{}, ctx.Err()
		}
		log.Debug().Err(err).Str("parser", p.Name()).Str("url", videoURL).Msg("parser failed, trying next")
		errs = append(errs, fmt.Errorf("parser %s failed: %w", p.Name(), err))
	}
	return sources.Track{}, errors.Join(errs...)
}

func (y *YouTubeSource) searchWithParsers(ctx context.Context, query string) (sources.Track, error) {
	var errs []error
	for _, p := range y.parsers {
		if !p.SupportsSearch() {
			continue
		}
		info, err := p.Parse(ctx, query)
		if err == nil {
			return toTrack(info, "", p.Name()), nil
		}
		errs = append(errs, fmt.Errorf("parser %s search failed: %w", p.Name(), err))
	}
	if len(errs) == 0 {
		return sources.Track{}, errors.New("no parser supports search")
	}
	return sources.Track{}, errors.Join(errs...)
}

func toTrack(info *parsers.Info, fallbackURL, parser string) sources.Track {
	page := info.WebpageURL
	if page == "" {
		page = fallbackURL
	}
	return sources.NewTrack(info.Title, page, info.StreamURL, info.Duration, sources.SourceYouTube, parser)
}
