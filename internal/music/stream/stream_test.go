package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/keshon/musicbot/internal/music/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameBytes = frameSize * channels * 2

type countingEncoder struct {
	frames int
	err    error
}

func (e *countingEncoder) Encode(pcm []int16, fs, maxDataBytes int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.frames++
	return []byte{byte(e.frames)}, nil
}

func pcmOf(frames int) []byte { return make([]byte, frames*frameBytes) }

func TestFFmpegArgs(t *testing.T) {
	args := FFmpegArgs("https://stream", 1.0, 0)
	assert.NotContains(t, args, "-filter:a")
	assert.NotContains(t, args, "-ss")
	assert.Subset(t, args, []string{"-reconnect", "-vn", "s16le", "48000", "pipe:1"})
	assert.Equal(t, "pipe:1", args[len(args)-1])

	args = FFmpegArgs("https://stream", 1.0005, 0)
	assert.NotContains(t, args, "-filter:a")

	args = FFmpegArgs("https://stream", 0.35, 90*time.Second)
	assert.Contains(t, args, "volume=0.350")
	assert.Contains(t, args, "90.00")
}

func TestTargetBitrate(t *testing.T) {
	cases := []struct {
		channel int
		want    int
	}{
		{0, 64_000},
		{8_000, 64_000},
		{96_000, 96_000},
		{191_999, 191_000},
		{192_000, 192_000},
		{384_000, 192_000},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TargetBitrate(c.channel), "channel bitrate %d", c.channel)
	}
}

func TestEncode(t *testing.T) {
	t.Run("sends every full frame", func(t *testing.T) {
		enc := &countingEncoder{}
		out := make(chan []byte, 10)
		data := append(pcmOf(3), 1, 2, 3)

		err := Encode(bytes.NewReader(data), enc, out, make(chan struct{}), nil)
		require.NoError(t, err)
		assert.Equal(t, 3, enc.frames)
		assert.Len(t, out, 3)
	})

	t.Run("stop ends without error", func(t *testing.T) {
		stop := make(chan struct{})
		close(stop)
		err := Encode(bytes.NewReader(pcmOf(5)), &countingEncoder{}, make(chan []byte), stop, nil)
		assert.NoError(t, err)
	})

	t.Run("encoder failure", func(t *testing.T) {
		boom := errors.New("boom")
		err := Encode(bytes.NewReader(pcmOf(1)), &countingEncoder{err: boom}, make(chan []byte, 1), make(chan struct{}), nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("read failure", func(t *testing.T) {
		broken := io.MultiReader(bytes.NewReader(pcmOf(1)), iotestErrReader{})
		err := Encode(broken, &countingEncoder{}, make(chan []byte, 2), make(chan struct{}), nil)
		assert.ErrorContains(t, err, "read error")
	})

	t.Run("pause holds the loop", func(t *testing.T) {
		gate := &PauseGate{}
		gate.Pause()
		out := make(chan []byte, 10)
		errc := make(chan error, 1)
		go func() { errc <- Encode(bytes.NewReader(pcmOf(2)), &countingEncoder{}, out, make(chan struct{}), gate) }()

		assert.Never(t, func() bool { return len(out) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
		gate.Resume()
		require.NoError(t, <-errc)
		assert.Len(t, out, 2)
	})

	t.Run("stop while paused", func(t *testing.T) {
		gate := &PauseGate{}
		gate.Pause()
		stop := make(chan struct{})
		errc := make(chan error, 1)
		go func() { errc <- Encode(bytes.NewReader(pcmOf(2)), &countingEncoder{}, make(chan []byte), stop, gate) }()
		close(stop)
		assert.NoError(t, <-errc)
	})
}

type iotestErrReader struct{}

func (iotestErrReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

type openCall struct {
	url  string
	seek time.Duration
}

type fakeOpener struct {
	mu     sync.Mutex
	calls  []openCall
	chunks [][]byte
	err    error
}

func (f *fakeOpener) open(_ context.Context, url string, _ float64, seek time.Duration) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, openCall{url: url, seek: seek})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	chunk := f.chunks[0]
	f.chunks = f.chunks[1:]
	return io.NopCloser(bytes.NewReader(chunk)), nil
}

func TestRecoveryStream(t *testing.T) {
	t.Run("reopens at position after early end", func(t *testing.T) {
		tr := sources.NewTrack("A", "", "https://stream", time.Minute, sources.SourceYouTube, "kkdai")
		op := &fakeOpener{chunks: [][]byte{make([]byte, bytesPerSecond*10), make([]byte, bytesPerSecond*50)}}

		rs, err := NewRecoveryStream(context.Background(), op.open, tr, 1.0)
		require.NoError(t, err)
		data, err := io.ReadAll(rs)
		require.NoError(t, err)

		assert.Len(t, data, bytesPerSecond*60)
		require.Len(t, op.calls, 2)
		assert.Equal(t, 10*time.Second, op.calls[1].seek)
		assert.NoError(t, rs.Close())
	})

	t.Run("live tracks are not reopened", func(t *testing.T) {
		tr := sources.NewTrack("Radio", "", "https://stream", 0, sources.SourceYouTube, "ytdlp")
		op := &fakeOpener{chunks: [][]byte{make([]byte, 100)}}

		rs, err := NewRecoveryStream(context.Background(), op.open, tr, 1.0)
		require.NoError(t, err)
		_, err = io.ReadAll(rs)
		require.NoError(t, err)
		assert.Len(t, op.calls, 1)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		tr := sources.NewTrack("A", "", "https://stream", time.Hour, sources.SourceYouTube, "kkdai")
		op := &fakeOpener{}

		rs, err := NewRecoveryStream(context.Background(), op.open, tr, 1.0)
		require.NoError(t, err)
		_, err = io.ReadAll(rs)
		require.NoError(t, err)
		assert.Len(t, op.calls, 1+maxRecoveryAttempts)
	})

	t.Run("open failure", func(t *testing.T) {
		op := &fakeOpener{err: errors.New("no ffmpeg")}
		_, err := NewRecoveryStream(context.Background(), op.open, sources.Track{}, 1.0)
		assert.Error(t, err)
	})
}

type fakeLink struct {
	mu           sync.Mutex
	out          chan []byte
	channels     []string
	speaking     []bool
	disconnected bool
}

func (l *fakeLink) Opus() chan<- []byte { return l.out }

func (l *fakeLink) Speaking(b bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.speaking = append(l.speaking, b)
	return nil
}

func (l *fakeLink) ChangeChannel(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = append(l.channels, id)
	return nil
}

func (l *fakeLink) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnected = true
	return nil
}

func newTestTransport(link *fakeLink, op *fakeOpener) *VoiceTransport {
	return newVoiceTransport("1", link, op.open, func() (FrameEncoder, error) { return &countingEncoder{}, nil })
}

func TestVoiceTransport(t *testing.T) {
	track := sources.NewTrack("A", "", "https://stream/a", 0, sources.SourceYouTube, "kkdai")

	t.Run("plays to the end", func(t *testing.T) {
		link := &fakeLink{out: make(chan []byte, 10)}
		tr := newTestTransport(link, &fakeOpener{chunks: [][]byte{pcmOf(4)}})

		done := make(chan error, 1)
		require.NoError(t, tr.Play(track, 1.0, func(err error) { done <- err }))
		require.NoError(t, <-done)
		assert.Len(t, link.out, 4)
	})

	t.Run("stop reports completion", func(t *testing.T) {
		link := &fakeLink{out: make(chan []byte)}
		tr := newTestTransport(link, &fakeOpener{chunks: [][]byte{pcmOf(100)}})

		done := make(chan error, 1)
		require.NoError(t, tr.Play(track, 1.0, func(err error) { done <- err }))
		tr.Stop()
		tr.Stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("stop did not end playback")
		}
	})

	t.Run("play replaces the running track", func(t *testing.T) {
		link := &fakeLink{out: make(chan []byte)}
		tr := newTestTransport(link, &fakeOpener{chunks: [][]byte{pcmOf(100), pcmOf(100)}})

		first := make(chan error, 1)
		require.NoError(t, tr.Play(track, 1.0, func(err error) { first <- err }))
		require.NoError(t, tr.Play(track, 1.0, func(error) {}))
		assert.NoError(t, <-first)
		require.NoError(t, tr.Disconnect())
		assert.True(t, link.disconnected)
	})

	t.Run("open failure", func(t *testing.T) {
		link := &fakeLink{out: make(chan []byte)}
		tr := newTestTransport(link, &fakeOpener{err: errors.New("no ffmpeg")})
		assert.Error(t, tr.Play(track, 1.0, func(error) {}))
	})

	t.Run("closed transport", func(t *testing.T) {
		link := &fakeLink{out: make(chan []byte)}
		tr := newTestTransport(link, &fakeOpener{})
		require.NoError(t, tr.Disconnect())
		assert.Error(t, tr.Play(track, 1.0, func(error) {}))
	})

	t.Run("close keeps the link", func(t *testing.T) {
		link := &fakeLink{out: make(chan []byte)}
		tr := newTestTransport(link, &fakeOpener{chunks: [][]byte{pcmOf(100)}})

		done := make(chan error, 1)
		require.NoError(t, tr.Play(track, 1.0, func(err error) { done <- err }))
		tr.Close()
		tr.Close()

		assert.NoError(t, <-done)
		assert.Error(t, tr.ctx.Err())
		assert.False(t, link.disconnected)
		assert.Error(t, tr.Play(track, 1.0, func(error) {}))
	})

	t.Run("move and pause", func(t *testing.T) {
		link := &fakeLink{out: make(chan []byte, 10)}
		tr := newTestTransport(link, &fakeOpener{chunks: [][]byte{pcmOf(2)}})
		require.NoError(t, tr.Move("other"))
		assert.Equal(t, []string{"other"}, link.channels)

		tr.Pause()
		tr.Resume()

		done := make(chan error, 1)
		require.NoError(t, tr.Play(track, 1.0, func(err error) { done <- err }))
		tr.Pause()
		tr.Resume()
		require.NoError(t, <-done)
	})
}
