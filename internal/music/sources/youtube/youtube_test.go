package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keshon/musicbot/internal/music/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser struct {
	name   string
	search bool
	info   *parsers.Info
	err    error
	inputs []string
}

func (p *stubParser) Name() string         { return p.name }
func (p *stubParser) SupportsSearch() bool { return p.search }
func (p *stubParser) Parse(_ context.Context, input string) (*parsers.Info, error) {
	p.inputs = append(p.inputs, input)
	if p.err != nil {
		return nil, p.err
	}
	return p.info, nil
}

func searchServer(t *testing.T, status int, body string) *SearchResolver {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/results", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	r := NewSearchResolver(srv.Client())
	r.BaseURL = srv.URL
	return r
}

func TestResolveVideoURL(t *testing.T) {
	broken := &stubParser{name: "kkdai", err: errors.New("boom")}
	working := &stubParser{name: "ytdlp", info: &parsers.Info{Title: "Song", StreamURL: "https://cdn/s", Duration: time.Minute}}
	src := New(searchServer(t, http.StatusOK, ""), broken, working)

	tracks, err := src.Resolve(context.Background(), " https://www.youtube.com/watch?v=abcdefghijk&list=RD123&t=42 ")
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	assert.Equal(t, "Song", tracks[0].Title)
	assert.Equal(t, "https://cdn/s", tracks[0].StreamURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abcdefghijk", tracks[0].URL)
	assert.Equal(t, "ytdlp", tracks[0].Parser)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=abcdefghijk"}, broken.inputs)
}

func TestResolveAllParsersFail(t *testing.T) {
	src := New(searchServer(t, http.StatusOK, ""),
		&stubParser{name: "kkdai", err: errors.New("a")},
		&stubParser{name: "ytdlp", err: errors.New("b")},
	)
	_, err := src.Resolve(context.Background(), "https://youtu.be/abcdefghijk")
	require.Error(t, err)
	assert.ErrorContains(t, err, "parser kkdai failed")
	assert.ErrorContains(t, err, "parser ytdlp failed")
}

func TestResolveSearch(t *testing.T) {
	page := `..."url":"/watch?v=abcdefghijk&pp=x"...`
	p := &stubParser{name: "kkdai", info: &parsers.Info{Title: "Found", StreamURL: "https://cdn/f"}}
	src := New(searchServer(t, http.StatusOK, page), p)

	tracks, err := src.Resolve(context.Background(), "lofi hip hop")
	require.NoError(t, err)
	assert.Equal(t, "Found", tracks[0].Title)
	assert.Len(t, p.inputs, 1)
	assert.Contains(t, p.inputs[0], "/watch?v=abcdefghijk")
}

func TestResolveSearchFallsBackToParserSearch(t *testing.T) {
	kkdai := &stubParser{name: "kkdai", err: errors.New("unused")}
	ytdlp := &stubParser{name: "ytdlp", search: true, info: &parsers.Info{Title: "Via yt-dlp", WebpageURL: "https://www.youtube.com/watch?v=zzzzzzzzzzz", StreamURL: "https://cdn/z"}}
	src := New(searchServer(t, http.StatusTooManyRequests, ""), kkdai, ytdlp)

	tracks, err := src.Resolve(context.Background(), "some song")
	require.NoError(t, err)
	assert.Equal(t, "Via yt-dlp", tracks[0].Title)
	assert.Empty(t, kkdai.inputs)
	assert.Equal(t, []string{"some song"}, ytdlp.inputs)
}

func TestResolveRejectsNonVideoURL(t *testing.T) {
	src := New(nil, &stubParser{name: "kkdai"})
	_, err := src.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	assert.Error(t, err)
}

func TestSearchStatusError(t *testing.T) {
	r := searchServer(t, http.StatusServiceUnavailable, "")
	_, err := r.SearchFirstVideoURL(context.Background(), "x")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode())
}

func TestSearchNoMatch(t *testing.T) {
	r := searchServer(t, http.StatusOK, "<html></html>")
	_, err := r.SearchFirstVideoURL(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoVideoMatch)
}

func TestCleanVideoURL(t *testing.T) {
	tests := map[string]string{
		"https://youtu.be/abcdefghijk?t=10":                        "https://youtu.be/abcdefghijk",
		"https://music.youtube.com/watch?v=abcdefghijk&feature=sh": "https://www.youtube.com/watch?v=abcdefghijk",
		"https://www.youtube.com/shorts/abcdefghijk":               "https://www.youtube.com/watch?v=abcdefghijk",
		"https://example.com/watch?v=1":                            "https://example.com/watch?v=1",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanVideoURL(in), in)
	}
}

func TestMatch(t *testing.T) {
	src := New(nil)
	assert.True(t, src.Match("https://youtu.be/abcdefghijk"))
	assert.True(t, src.Match("https://m.youtube.com/watch?v=abcdefghijk"))
	assert.False(t, src.Match("https://soundcloud.com/a/b"))
}
