package player

import (
	"errors"
	"sync"

	"github.com/keshon/musicbot/internal/music/sources"
)

type playCall struct {
	track  sources.Track
	volume float64
	done   func(error)
}

type fakeTransport struct {
	mu           sync.Mutex
	plays        []playCall
	failTitles   map[string]bool
	block        chan struct{}
	stops        int
	pauses       int
	resumes      int
	moves        []string
	disconnected bool
	closed       bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failTitles: map[string]bool{}}
}

func (f *fakeTransport) Play(track sources.Track, volume float64, done func(error)) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTitles[track.Title] {
		return errors.New("ffmpeg exploded")
	}
	f.plays = append(f.plays, playCall{track: track, volume: volume, done: done})
	return nil
}

// Stop ends the last started track the way a real transport would: by
// reporting completion from another goroutine.
func (f *fakeTransport) Stop() {
	f.mu.Lock()
	f.stops++
	var done func(error)
	if n := len(f.plays); n > 0 {
		done = f.plays[n-1].done
	}
	f.mu.Unlock()
	if done != nil {
		go done(nil)
	}
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func (f *fakeTransport) Resume() {
	f.mu.Lock()
	f.resumes++
	f.mu.Unlock()
}

func (f *fakeTransport) Move(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, channelID)
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeTransport) lastPlay() playCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays[len(f.plays)-1]
}

func (f *fakeTransport) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

type fakeConnector struct {
	mu         sync.Mutex
	transports map[string]*fakeTransport
	err        error
	dials      int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{transports: map[string]*fakeTransport{}}
}

func (c *fakeConnector) Connect(guildID, channelID string) (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dials++
	if c.err != nil {
		return nil, c.err
	}
	tr, ok := c.transports[guildID]
	if !ok {
		tr = newFakeTransport()
		c.transports[guildID] = tr
	}
	return tr, nil
}

func (c *fakeConnector) transport(guildID string) *fakeTransport {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.transports[guildID]
	if !ok {
		tr = newFakeTransport()
		c.transports[guildID] = tr
	}
	return tr
}

func track(title string) sources.Track {
	return sources.NewTrack(title, "https://www.youtube.com/watch?v="+title, "https://stream/"+title, 0, sources.SourceYouTube, "ytdlp")
}

func titles(tracks []sources.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.Title)
	}
	return out
}
