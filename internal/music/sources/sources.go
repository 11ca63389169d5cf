package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	SourceAuto    = "auto"
	SourceYouTube = "youtube"
)

// Source turns user input into playable tracks.
type Source interface {
	// Match checks if this source can handle the given input
	Match(input string) bool

	// Resolve turns an input into one or more playable tracks
	Resolve(ctx context.Context, input string) ([]Track, error)

	// SourceName returns the string identifier ("youtube", ...)
	SourceName() string
}

// Track is one resolved playable item. Values are never mutated after NewTrack.
type Track struct {
	ID        string
	Title     string
	URL       string
	StreamURL string
	Duration  time.Duration
	Requester string
	Source    string
	Parser    string
}

// NewTrack stamps a fresh ID on a resolved track.
func NewTrack(title, pageURL, streamURL string, duration time.Duration, source, parser string) Track {
	if title == "" {
		title = "Unknown title"
	}
	return Track{
		ID:        uuid.NewString(),
		Title:     title,
		URL:       pageURL,
		StreamURL: streamURL,
		Duration:  duration,
		Source:    source,
		Parser:    parser,
	}
}

// WithRequester returns a copy of t attributed to requester.
func (t Track) WithRequester(requester string) Track {
	t.Requester = requester
	return t
}

// IsLive reports whether the track has no known duration.
func (t Track) IsLive() bool { return t.Duration <= 0 }

// String renders the track as a markdown link when a page URL is known.
func (t Track) String() string {
	if t.URL == "" {
		return t.Title
	}
	return fmt.Sprintf("[%s](%s)", t.Title, t.URL)
}

// FormatDuration renders d as m:ss or h:mm:ss, or "live" when unknown.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "live"
	}
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
