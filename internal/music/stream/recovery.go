package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/keshon/musicbot/internal/music/sources"
	"github.com/rs/zerolog/log"
)

const (
	maxRecoveryAttempts = 3
	recoveryTolerance   = 5 * time.Second
)

// RecoveryStream reopens a track at the current position when the upstream
// connection ends well before the track's known duration.
type RecoveryStream struct {
	mu      sync.Mutex
	closed  bool
	ctx     context.Context
	open    Opener
	track   sources.Track
	volume  float64
	stream  io.ReadCloser
	played  int64 // PCM bytes delivered
	retries int
}

// NewRecoveryStream opens track from the beginning.
func NewRecoveryStream(ctx context.Context, open Opener, track sources.Track, volume float64) (*RecoveryStream, error) {
	rs := &RecoveryStream{ctx: ctx, open: open, track: track, volume: volume}
	s, err := open(ctx, track.StreamURL, volume, 0)
	if err != nil {
		return nil, err
	}
	rs.stream = s
	return rs, nil
}

// Position is how much audio has been read so far.
func (rs *RecoveryStream) Position() time.Duration {
	return time.Duration(rs.played) * time.Second / bytesPerSecond
}

func (rs *RecoveryStream) Read(p []byte) (int, error) {
	rs.mu.Lock()
	s := rs.stream
	rs.mu.Unlock()
	if s == nil {
		return 0, errors.New("stream not opened")
	}

	n, err := s.Read(p)
	rs.played += int64(n)
	if errors.Is(err, io.EOF) && n == 0 && rs.endedEarly() {
		return rs.recover(p)
	}
	return n, err
}

func (rs *RecoveryStream) endedEarly() bool {
	if rs.track.IsLive() || rs.ctx.Err() != nil {
		return false
	}
	return rs.Position() < rs.track.Duration-recoveryTolerance
}

func (rs *RecoveryStream) recover(p []byte) (int, error) {
	if rs.retries >= maxRecoveryAttempts {
		log.Warn().Str("track", rs.track.ID).Msg("[RecoveryStream] max recovery attempts reached")
		return 0, io.EOF
	}
	rs.retries++

	at := rs.Position()
	log.Info().Str("track", rs.track.ID).Int("attempt", rs.retries).Dur("position", at).Msg("[RecoveryStream] stream ended prematurely, reopening")

	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return 0, io.EOF
	}
	_ = rs.stream.Close()
	rs.stream = io.NopCloser(eofReader{})
	rs.mu.Unlock()

	s, err := rs.open(rs.ctx, rs.track.StreamURL, rs.volume, at)
	if err != nil {
		log.Warn().Err(err).Str("track", rs.track.ID).Msg("[RecoveryStream] recovery failed")
		return 0, io.EOF
	}

	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		_ = s.Close()
		return 0, io.EOF
	}
	rs.stream = s
	rs.mu.Unlock()
	return rs.Read(p)
}

// Close is safe to call from another goroutine while Read is blocked.
func (rs *RecoveryStream) Close() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed || rs.stream == nil {
		return nil
	}
	rs.closed = true
	return rs.stream.Close()
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
