package stream

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz

	bytesPerSecond = sampleRate * channels * 2
)

// Opener starts a PCM s16le 48kHz stereo stream for url. Closing the
// reader releases everything it holds.
type Opener func(ctx context.Context, url string, volume float64, seek time.Duration) (io.ReadCloser, error)

// FFmpegArgs builds the ffmpeg command line that transcodes url to raw PCM
// on stdout. The volume filter is only added when it changes the signal.
func FFmpegArgs(url string, volume float64, seek time.Duration) []string {
	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-nostdin",
	}
	if seek > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seek.Seconds(), 'f', 2, 64))
	}
	args = append(args, "-i", url, "-vn")
	if math.Abs(volume-1.0) > 1e-3 {
		args = append(args, "-filter:a", "volume="+strconv.FormatFloat(volume, 'f', 3, 64))
	}
	args = append(args,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	return args
}

// OpenPCM runs ffmpeg for url and returns its stdout.
func OpenPCM(ctx context.Context, url string, volume float64, seek time.Duration) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", FFmpegArgs(url, volume, seek)...)

	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return &ffmpegProcess{ReadCloser: reader, cmd: cmd}, nil
}

type ffmpegProcess struct {
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

func (p *ffmpegProcess) Close() error {
	p.once.Do(func() {
		_ = p.cmd.Process.Kill()
		_ = p.ReadCloser.Close()
		_ = p.cmd.Wait()
	})
	return nil
}
