package parsers

import (
	"context"
	"errors"
	"time"
)

const (
	ParserKkdai = "kkdai"
	ParserYtdlp = "ytdlp"
)

// ErrNoStream is returned when a parser found the media but no direct stream URL.
var ErrNoStream = errors.New("no direct stream url")

// Info is what a parser extracts from a page URL or search query.
type Info struct {
	Title      string
	WebpageURL string
	StreamURL  string
	Duration   time.Duration
}

// Parser resolves an input into stream metadata.
type Parser interface {
	Name() string
	// Parse accepts a page URL; parsers reporting SupportsSearch also accept a plain query.
	Parse(ctx context.Context, input string) (*Info, error)
	SupportsSearch() bool
}
