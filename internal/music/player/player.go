package player

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/keshon/musicbot/internal/music/sources"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultVolume = 1.0
	MinVolume     = 0.0
	MaxVolume     = 1.5
)

type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Action tells the caller what Enqueue did with the track.
type Action int

const (
	ActionStarted Action = iota
	ActionQueued
)

// Transport streams audio into one guild's voice channel.
//
// Play must not block on the playback itself: it starts the track and
// returns, and done is called exactly once when the track ends, fails or
// is stopped. Stop, Pause and Resume are best effort and never block.
// Close releases the transport without leaving the voice channel.
type Transport interface {
	Play(track sources.Track, volume float64, done func(error)) error
	Stop()
	Pause()
	Resume()
	Move(channelID string) error
	Disconnect() error
	Close()
}

// Connector dials a voice transport for a guild channel.
type Connector interface {
	Connect(guildID, channelID string) (Transport, error)
}

type trackFinished struct {
	generation uint64
	err        error
}

// Player is the playback session of a single guild.
type Player struct {
	mu         sync.Mutex
	guildID    string
	connector  Connector
	transport  Transport
	channelID  string
	queue      []sources.Track
	current    *sources.Track
	paused     bool
	volume     float64
	generation uint64
	idleSince  time.Time
	announceID string
	closed     bool

	events    chan trackFinished
	quit      chan struct{}
	closeOnce sync.Once

	PlayerStatus chan StatusEvent

	log zerolog.Logger
	now func() time.Time
}

// New creates an idle player and starts its completion event loop.
// Call Close when the session is discarded.
func New(guildID string, connector Connector) *Player {
	p := &Player{
		guildID:      guildID,
		connector:    connector,
		volume:       DefaultVolume,
		events:       make(chan trackFinished, 16),
		quit:         make(chan struct{}),
		PlayerStatus: make(chan StatusEvent, 10),
		log:          log.With().Str("guild", guildID).Logger(),
		now:          time.Now,
	}
	p.idleSince = p.now()
	go p.loop()
	return p
}

func (p *Player) GuildID() string { return p.guildID }

// Connect attaches the player to channelID. An existing transport is reused
// when it already sits in that channel and moved otherwise.
func (p *Player) Connect(channelID string) error {
	p.mu.Lock()
	tr, current, closed := p.transport, p.channelID, p.closed
	p.mu.Unlock()

	if closed {
		return ErrSessionClosed
	}
	if tr != nil {
		if current == channelID {
			return nil
		}
		if err := tr.Move(channelID); err != nil {
			return fmt.Errorf("%w: move to channel %s: %w", ErrVoiceTransport, channelID, err)
		}
		p.mu.Lock()
		p.channelID = channelID
		p.mu.Unlock()
		p.log.Info().Str("channel", channelID).Msg("[Player] moved voice connection")
		return nil
	}

	dialed, err := p.connector.Connect(p.guildID, channelID)
	if err != nil {
		return fmt.Errorf("%w: join channel %s: %w", ErrVoiceTransport, channelID, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = dialed.Disconnect()
		return ErrSessionClosed
	}
	if p.transport != nil {
		// A concurrent Connect won the race; keep its transport.
		p.mu.Unlock()
		_ = dialed.Disconnect()
		return nil
	}
	p.transport = dialed
	p.channelID = channelID
	p.mu.Unlock()

	p.log.Info().Str("channel", channelID).Msg("[Player] joined voice channel")
	return nil
}

// Enqueue starts track right away when the session is idle and appends it
// to the queue otherwise.
func (p *Player) Enqueue(track sources.Track) (Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrSessionClosed
	}
	if p.transport == nil {
		return 0, ErrNotConnected
	}

	if p.current != nil {
		p.queue = append(p.queue, track)
		p.log.Info().Str("track", track.ID).Str("title", track.Title).Int("queue_len", len(p.queue)).Msg("[Player] track queued")
		p.emitStatus(StatusAdded, track, nil)
		return ActionQueued, nil
	}

	p.current = &track
	if err := p.startLocked(track); err != nil {
		p.setIdleLocked()
		return 0, err
	}
	p.emitStatus(StatusPlaying, track, nil)
	return ActionStarted, nil
}

// Skip stops the current track. The queue advances when the transport
// reports the track as finished.
func (p *Player) Skip() (sources.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return sources.Track{}, ErrNothingPlaying
	}
	skipped := *p.current
	p.paused = false
	if p.transport != nil {
		p.transport.Stop()
	}
	p.log.Info().Str("track", skipped.ID).Msg("[Player] skip requested")
	return skipped, nil
}

// OnTrackFinished moves the head of the queue into the current slot and
// starts it, or leaves the session idle when the queue is empty.
func (p *Player) OnTrackFinished() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked()
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNothingPlaying
	}
	if p.paused {
		return nil
	}
	p.paused = true
	if p.transport != nil {
		p.transport.Pause()
	}
	p.emitStatus(StatusPaused, *p.current, nil)
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNothingPlaying
	}
	if !p.paused {
		return nil
	}
	p.paused = false
	if p.transport != nil {
		p.transport.Resume()
	}
	p.emitStatus(StatusResumed, *p.current, nil)
	return nil
}

// ValidateVolume rejects multipliers outside [MinVolume, MaxVolume].
func ValidateVolume(v float64) error {
	if math.IsNaN(v) || v < MinVolume || v > MaxVolume {
		return fmt.Errorf("%w: volume must be between %.1f and %.1f", ErrInvalidArgument, MinVolume, MaxVolume)
	}
	return nil
}

// SetVolume stores the multiplier used for tracks started from now on.
func (p *Player) SetVolume(v float64) error {
	if err := ValidateVolume(v); err != nil {
		return err
	}
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	return nil
}

// Stop clears the session and leaves the voice channel.
func (p *Player) Stop() error {
	p.mu.Lock()
	tr := p.transport
	p.queue = nil
	p.current = nil
	p.paused = false
	p.generation++
	p.transport = nil
	p.channelID = ""
	p.idleSince = p.now()
	p.mu.Unlock()

	p.emitStatus(StatusStopped, sources.Track{}, nil)

	if tr == nil {
		return nil
	}
	tr.Stop()
	if err := tr.Disconnect(); err != nil {
		return fmt.Errorf("%w: disconnect: %w", ErrVoiceTransport, err)
	}
	p.log.Info().Msg("[Player] stopped and disconnected")
	return nil
}

// Detach stops playback and releases the transport without disconnecting
// it. Used when the voice connection was closed from the outside.
func (p *Player) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.transport != nil {
		p.transport.Close()
	}
	p.queue = nil
	p.current = nil
	p.paused = false
	p.generation++
	p.transport = nil
	p.channelID = ""
	p.idleSince = p.now()
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// IdleSince reports when the session last became idle. ok is false while
// a track is loaded.
func (p *Player) IdleSince() (since time.Time, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return time.Time{}, false
	}
	return p.idleSince, true
}

func (p *Player) ChannelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channelID
}

// SetAnnounceChannel remembers the text channel that queue updates go to.
func (p *Player) SetAnnounceChannel(channelID string) {
	p.mu.Lock()
	p.announceID = channelID
	p.mu.Unlock()
}

func (p *Player) AnnounceChannel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.announceID
}

// Close stops the completion event loop. It does not touch the transport.
// A closed player refuses Connect and Enqueue.
func (p *Player) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.closeOnce.Do(func() { close(p.quit) })
}

// Done is closed once the player has been closed.
func (p *Player) Done() <-chan struct{} { return p.quit }

func (p *Player) stateLocked() State {
	switch {
	case p.current == nil:
		return StateIdle
	case p.paused:
		return StatePaused
	default:
		return StatePlaying
	}
}

// startLocked hands track to the transport under a fresh generation, so
// completions from earlier tracks are recognisable as stale.
func (p *Player) startLocked(track sources.Track) error {
	if p.transport == nil {
		return ErrNotConnected
	}
	p.generation++
	gen := p.generation
	p.paused = false

	err := p.transport.Play(track, p.volume, func(err error) {
		p.post(trackFinished{generation: gen, err: err})
	})
	if err != nil {
		p.log.Error().Err(err).Str("track", track.ID).Msg("[Player] failed to start track")
		p.emitStatus(StatusError, track, err)
		return fmt.Errorf("%w: %w", ErrVoiceTransport, err)
	}
	p.log.Info().Str("track", track.ID).Str("title", track.Title).Float64("volume", p.volume).Msg("[Player] now playing")
	return nil
}

// advanceLocked starts the next queued track, dropping tracks that fail to
// start, and goes idle once the queue is exhausted.
func (p *Player) advanceLocked() {
	for len(p.queue) > 0 {
		next := p.queue[0]
		p.queue = slices.Delete(p.queue, 0, 1)
		p.current = &next
		if err := p.startLocked(next); err != nil {
			if errors.Is(err, ErrNotConnected) {
				break
			}
			continue
		}
		p.publish(StatusEvent{Status: StatusPlaying, Track: next, FromQueue: true})
		return
	}

	if p.current == nil {
		return
	}
	if p.transport != nil {
		p.transport.Stop()
	}
	p.setIdleLocked()
	p.log.Info().Msg("[Player] queue finished")
	p.emitStatus(StatusIdle, sources.Track{}, nil)
}

func (p *Player) setIdleLocked() {
	p.current = nil
	p.paused = false
	p.queue = nil
	p.generation++
	p.idleSince = p.now()
}

func (p *Player) post(ev trackFinished) {
	select {
	case p.events <- ev:
	case <-p.quit:
	}
}

func (p *Player) loop() {
	for {
		select {
		case ev := <-p.events:
			p.handleFinished(ev)
		case <-p.quit:
			return
		}
	}
}

func (p *Player) handleFinished(ev trackFinished) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.generation != p.generation {
		p.log.Debug().Uint64("generation", ev.generation).Msg("[Player] ignoring stale completion")
		return
	}
	if ev.err != nil && p.current != nil {
		p.log.Warn().Err(ev.err).Str("track", p.current.ID).Msg("[Player] track ended with error")
		p.emitStatus(StatusError, *p.current, ev.err)
	}
	p.advanceLocked()
}
