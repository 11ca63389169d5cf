package kkdai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	"github.com/keshon/musicbot/internal/music/parsers"
	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// KKDAIParser resolves YouTube watch URLs with the kkdai/youtube client.
type KKDAIParser struct {
	client videoClient
}

// New builds a parser; proxyStr may be empty or an http(s)/socks4/socks5 URL.
func New(proxyStr string) *KKDAIParser {
	return &KKDAIParser{client: NewClient(proxyStr)}
}

func (p *KKDAIParser) Name() string         { return parsers.ParserKkdai }
func (p *KKDAIParser) SupportsSearch() bool { return false }

func (p *KKDAIParser) Parse(ctx context.Context, input string) (*parsers.Info, error) {
	videoID, err := youtube.ExtractVideoID(input)
	if err != nil {
		return nil, fmt.Errorf("[kkdai] %w", err)
	}

	video, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("[kkdai] youtube client error: %w", err)
	}

	format, err := bestAudio(video.Formats)
	if err != nil {
		return nil, err
	}

	link, err := p.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("[kkdai] get stream URL error: %w", err)
	}
	if link == "" {
		return nil, parsers.ErrNoStream
	}

	return &parsers.Info{
		Title:      video.Title,
		WebpageURL: "https://www.youtube.com/watch?v=" + video.ID,
		StreamURL:  link,
		Duration:   video.Duration,
	}, nil
}

// bestAudio prefers audio-only formats with the highest bitrate.
func bestAudio(formats youtube.FormatList) (*youtube.Format, error) {
	candidates := formats.Type("audio")
	if len(candidates) == 0 {
		candidates = formats.WithAudioChannels()
	}
	if len(candidates) == 0 {
		return nil, errors.New("[kkdai] no audio formats found for video")
	}

	best := &candidates[0]
	for i := range candidates {
		if candidates[i].Bitrate > best.Bitrate {
			best = &candidates[i]
		}
	}
	return best, nil
}

// NewClient returns a youtube client, routed through proxyStr when it is usable.
func NewClient(proxyStr string) *youtube.Client {
	transport := proxyTransport(proxyStr)
	if transport == nil {
		return &youtube.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}}
	}
	return &youtube.Client{
		HTTPClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

func proxyTransport(proxyStr string) *http.Transport {
	if proxyStr == "" {
		return nil
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		log.Warn().Err(err).Msg("[kkdai] invalid proxy format, going direct")
		return nil
	}

	switch proxyURL.Scheme {
	case "http", "https":
		log.Info().Str("proxy", proxyURL.Host).Msg("[kkdai] using HTTP proxy")
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	case "socks5", "socks4":
		// socks4 is registered with x/net/proxy by go-socks4's init
		dialer, err := proxy.FromURL(proxyURL, &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 10 * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Str("scheme", proxyURL.Scheme).Msg("[kkdai] proxy dialer error, going direct")
			return nil
		}
		log.Info().Str("proxy", proxyURL.Host).Str("scheme", proxyURL.Scheme).Msg("[kkdai] using SOCKS proxy")
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	default:
		log.Warn().Str("scheme", proxyURL.Scheme).Msg("[kkdai] unsupported proxy scheme, going direct")
		return nil
	}
}
