package player

import (
	"github.com/keshon/musicbot/internal/music/sources"
)

type PlayerStatus string

const (
	StatusPlaying PlayerStatus = "Playing"
	StatusAdded   PlayerStatus = "Track Added"
	StatusStopped PlayerStatus = "Playback Stopped"
	StatusPaused  PlayerStatus = "Playback Paused"
	StatusResumed PlayerStatus = "Playback Resumed"
	StatusIdle    PlayerStatus = "Queue Finished"
	StatusError   PlayerStatus = "Error"
)

func (status PlayerStatus) StringEmoji() string {
	m := map[PlayerStatus]string{
		StatusPlaying: "▶️",
		StatusAdded:   "🎶",
		StatusStopped: "⏹",
		StatusPaused:  "⏸",
		StatusResumed: "▶️",
		StatusIdle:    "💤",
		StatusError:   "❌",
	}
	return m[status]
}

// StatusEvent is published on Player.PlayerStatus. Track is zero for
// events that are not about a specific track. FromQueue marks tracks that
// started because the previous one ended rather than from Enqueue.
type StatusEvent struct {
	Status    PlayerStatus
	Track     sources.Track
	Err       error
	FromQueue bool
}

// emitStatus never blocks; events are dropped when nobody is listening.
func (p *Player) emitStatus(status PlayerStatus, track sources.Track, err error) {
	p.publish(StatusEvent{Status: status, Track: track, Err: err})
}

func (p *Player) publish(ev StatusEvent) {
	select {
	case p.PlayerStatus <- ev:
	default:
		p.log.Debug().Str("status", string(ev.Status)).Msg("[Player] status dropped (channel full)")
	}
}
