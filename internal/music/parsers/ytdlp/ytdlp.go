package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"
	"github.com/keshon/musicbot/internal/music/parsers"
	"github.com/rs/zerolog/log"
)

const format = "bestaudio[ext=webm][acodec=opus]/bestaudio/best"

// alternate player clients dodge SABR/PO-token blocks on the default web client
const fallbackClients = "youtube:player_client=ios,tv"

// Runner executes yt-dlp and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// YTDLPParser extracts stream info by shelling out to yt-dlp.
type YTDLPParser struct {
	Binary string
	Run    Runner
}

func New() *YTDLPParser {
	p := &YTDLPParser{Binary: "yt-dlp"}
	p.Run = p.exec
	return p
}

func (p *YTDLPParser) Name() string         { return parsers.ParserYtdlp }
func (p *YTDLPParser) SupportsSearch() bool { return true }

// Parse resolves a URL, or a plain query through ytsearch1.
func (p *YTDLPParser) Parse(ctx context.Context, input string) (*parsers.Info, error) {
	target := strings.TrimSpace(input)
	if !isURL(target) {
		target = "ytsearch1:" + target
	}

	info, err := p.extract(ctx, target)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, parsers.ErrNoStream) {
		return nil, err
	}

	log.Debug().Str("input", target).Msg("yt-dlp returned no stream url, retrying with alternate clients")
	return p.extract(ctx, target, "--extractor-args", fallbackClients)
}

func (p *YTDLPParser) extract(ctx context.Context, target string, extra ...string) (*parsers.Info, error) {
	args := append([]string{"-j", "-f", format, "--no-playlist", "--no-warnings", "--no-check-certificate"}, extra...)
	args = append(args, target)

	out, err := p.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp error: %w", err)
	}
	return decode(out)
}

// decode reads the first JSON object of yt-dlp -j output.
func decode(out []byte) (*parsers.Info, error) {
	line := bytes.TrimSpace(out)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if len(line) == 0 {
		return nil, errors.New("yt-dlp returned no results")
	}

	js, err := simplejson.NewJson(line)
	if err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}

	if entries, ok := js.CheckGet("entries"); ok {
		arr, _ := entries.Array()
		if len(arr) == 0 {
			return nil, errors.New("yt-dlp returned no results")
		}
		js = entries.GetIndex(0)
	}

	info := &parsers.Info{
		Title:      js.Get("title").MustString(),
		WebpageURL: js.Get("webpage_url").MustString(),
		StreamURL:  strings.TrimSpace(js.Get("url").MustString()),
		Duration:   time.Duration(js.Get("duration").MustFloat64() * float64(time.Second)),
	}

	if info.StreamURL == "" {
		if req, ok := js.CheckGet("requested_formats"); ok {
			info.StreamURL = strings.TrimSpace(req.GetIndex(0).Get("url").MustString())
		}
	}

	if info.Duration == 0 {
		frag := js.Get("formats").GetIndex(0).Get("fragments").GetIndex(0)
		info.Duration = time.Duration(frag.Get("duration").MustFloat64() * float64(time.Second))
	}

	if info.StreamURL == "" {
		return info, parsers.ErrNoStream
	}
	return info, nil
}

func (p *YTDLPParser) exec(ctx context.Context, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Binary, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
