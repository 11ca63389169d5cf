package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// FrameEncoder is the part of *gopus.Encoder the send loop needs.
type FrameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// PauseGate holds the send loop while paused. The zero value is open.
type PauseGate struct {
	mu     sync.Mutex
	resume chan struct{}
}

func (g *PauseGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume == nil {
		g.resume = make(chan struct{})
	}
}

func (g *PauseGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resume != nil {
		close(g.resume)
		g.resume = nil
	}
}

func (g *PauseGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resume != nil
}

// Wait blocks while the gate is paused. It returns false if stop fired first.
func (g *PauseGate) Wait(stop <-chan struct{}) bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	ch := g.resume
	g.mu.Unlock()
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	case <-stop:
		return false
	}
}

// Encode reads 20ms PCM frames from pcm, encodes them to opus and sends
// them to out until EOF or stop. A trailing partial frame is dropped.
func Encode(pcm io.Reader, enc FrameEncoder, out chan<- []byte, stop <-chan struct{}, gate *PauseGate) error {
	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if !gate.Wait(stop) {
			return nil
		}

		if _, err := io.ReadFull(pcm, pcmBuf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			select {
			case <-stop:
				return nil
			default:
			}
			return fmt.Errorf("read error: %w", err)
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, err := enc.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case out <- opus:
		case <-stop:
			return nil
		}
	}
}

// TargetBitrate picks the opus bitrate in bps for a voice channel bitrate
// in bps: 192kbps when the channel allows it, otherwise the channel cap
// clamped to [64, 256] kbps.
func TargetBitrate(channelBitrate int) int {
	capKbps := min(max(channelBitrate/1000, 64), 256)
	if capKbps >= 192 {
		return 192_000
	}
	return capKbps * 1000
}
