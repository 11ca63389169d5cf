package source_resolver

import (
	"github.com/keshon/musicbot/internal/music/parsers"
	"github.com/keshon/musicbot/internal/music/parsers/kkdai"
	"github.com/keshon/musicbot/internal/music/parsers/ytdlp"
	"github.com/keshon/musicbot/internal/music/sources/youtube"
)

// NewDefault wires the YouTube source with the kkdai parser first and
// yt-dlp as fallback. proxy may be empty, http(s) or socks.
func NewDefault(proxy string, attempts int) *SourceResolver {
	client := kkdai.NewClient(proxy)
	search := youtube.NewSearchResolver(client.HTTPClient)
	chain := []parsers.Parser{kkdai.New(proxy), ytdlp.New()}
	return New(attempts, youtube.New(search, chain...))
}
