package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/musicbot/internal/music/player"
	"github.com/keshon/musicbot/internal/music/sources"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"layeh.com/gopus"
)

// voiceLink is the slice of *discordgo.VoiceConnection the transport uses.
type voiceLink interface {
	Opus() chan<- []byte
	Speaking(bool) error
	ChangeChannel(channelID string) error
	Disconnect() error
}

type discordLink struct {
	vc *discordgo.VoiceConnection
}

func (d discordLink) Opus() chan<- []byte   { return d.vc.OpusSend }
func (d discordLink) Speaking(b bool) error { return d.vc.Speaking(b) }
func (d discordLink) Disconnect() error     { return d.vc.Disconnect() }
func (d discordLink) ChangeChannel(id string) error {
	return d.vc.ChangeChannel(id, false, true)
}

// VoiceTransport plays one track at a time into a voice connection.
type VoiceTransport struct {
	mu         sync.Mutex
	link       voiceLink
	open       Opener
	newEncoder func() (FrameEncoder, error)
	ctx        context.Context
	cancel     context.CancelFunc
	stop       chan struct{}
	finished   chan struct{}
	gate       *PauseGate
	log        zerolog.Logger
}

func newVoiceTransport(guildID string, link voiceLink, open Opener, newEncoder func() (FrameEncoder, error)) *VoiceTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &VoiceTransport{
		link:       link,
		open:       open,
		newEncoder: newEncoder,
		ctx:        ctx,
		cancel:     cancel,
		log:        log.With().Str("guild", guildID).Logger(),
	}
}

// Play stops whatever is playing and starts track. done receives nil when
// the track ends or is stopped and the stream error otherwise.
func (t *VoiceTransport) Play(track sources.Track, volume float64, done func(error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx.Err() != nil {
		return errors.New("voice transport is closed")
	}
	t.haltLocked()

	enc, err := t.newEncoder()
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}
	pcm, err := NewRecoveryStream(t.ctx, t.open, track, volume)
	if err != nil {
		return fmt.Errorf("failed to open stream for %q: %w", track.Title, err)
	}

	stop := make(chan struct{})
	finished := make(chan struct{})
	gate := &PauseGate{}
	t.stop, t.finished, t.gate = stop, finished, gate

	go func() {
		select {
		case <-stop:
		case <-finished:
		}
		_ = pcm.Close()
	}()

	go func() {
		_ = t.link.Speaking(true)
		err := Encode(pcm, enc, t.link.Opus(), stop, gate)
		_ = t.link.Speaking(false)
		close(finished)
		if err != nil {
			t.log.Warn().Err(err).Str("track", track.ID).Msg("[VoiceTransport] playback ended with error")
		} else {
			t.log.Debug().Str("track", track.ID).Dur("played", pcm.Position()).Msg("[VoiceTransport] playback ended")
		}
		done(err)
	}()
	return nil
}

func (t *VoiceTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		select {
		case <-t.stop:
		default:
			close(t.stop)
		}
	}
}

func (t *VoiceTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gate != nil {
		t.gate.Pause()
	}
}

func (t *VoiceTransport) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gate != nil {
		t.gate.Resume()
	}
}

func (t *VoiceTransport) Move(channelID string) error {
	return t.link.ChangeChannel(channelID)
}

func (t *VoiceTransport) Disconnect() error {
	t.mu.Lock()
	t.haltLocked()
	t.cancel()
	t.mu.Unlock()
	return t.link.Disconnect()
}

// Close stops playback and cancels the transport without hanging up the
// voice connection, for links that were already closed elsewhere.
func (t *VoiceTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
	t.cancel()
}

// haltLocked stops the running track and waits for its send loop to exit
// so two loops never write to the voice connection at once.
func (t *VoiceTransport) haltLocked() {
	if t.stop == nil {
		return
	}
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	<-t.finished
	t.stop, t.finished, t.gate = nil, nil, nil
}

// Connector joins voice channels through a discordgo session.
type Connector struct {
	Session      *discordgo.Session
	Open         Opener
	ReadyTimeout time.Duration
}

func NewConnector(s *discordgo.Session) *Connector {
	return &Connector{Session: s, Open: OpenPCM, ReadyTimeout: 3 * time.Second}
}

// Connect joins channelID self-deafened and waits for the voice handshake.
func (c *Connector) Connect(guildID, channelID string) (player.Transport, error) {
	vc, err := c.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	if err := waitReady(vc, c.ReadyTimeout); err != nil {
		_ = vc.Disconnect()
		return nil, err
	}

	bitrate := TargetBitrate(c.channelBitrate(channelID))
	newEncoder := func() (FrameEncoder, error) {
		enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
		if err != nil {
			return nil, err
		}
		enc.SetBitrate(bitrate)
		return enc, nil
	}

	log.Info().Str("guild", guildID).Str("channel", channelID).Int("bitrate", bitrate).Msg("[Connector] joined voice channel")
	return newVoiceTransport(guildID, discordLink{vc: vc}, c.Open, newEncoder), nil
}

func (c *Connector) channelBitrate(channelID string) int {
	if c.Session.State == nil {
		return 0
	}
	ch, err := c.Session.State.Channel(channelID)
	if err != nil {
		return 0
	}
	return ch.Bitrate
}

func waitReady(vc *discordgo.VoiceConnection, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("voice connection not ready after handshake")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
