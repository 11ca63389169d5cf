package player

import (
	"fmt"
	"slices"
	"strings"

	"github.com/keshon/musicbot/internal/music/sources"
)

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	Current *sources.Track
	Queue   []sources.Track
	Paused  bool
	Volume  float64
	State   State
}

// Describe copies the session under the lock.
func (p *Player) Describe() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		Queue:  slices.Clone(p.queue),
		Paused: p.paused,
		Volume: p.volume,
		State:  p.stateLocked(),
	}
	if p.current != nil {
		cur := *p.current
		s.Current = &cur
	}
	return s
}

func (s Snapshot) String() string {
	var b strings.Builder
	if s.Current == nil {
		b.WriteString("Nothing is playing.\n")
	} else {
		fmt.Fprintf(&b, "Now playing (%s): %s [%s]\n", s.State, s.Current.Title, sources.FormatDuration(s.Current.Duration))
	}
	for i, t := range s.Queue {
		fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, t.Title, sources.FormatDuration(t.Duration))
	}
	fmt.Fprintf(&b, "Volume: %.2f", s.Volume)
	return b.String()
}
