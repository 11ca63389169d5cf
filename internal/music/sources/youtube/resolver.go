package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

var (
	videoPattern    = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)
	ErrNoVideoMatch = errors.New("no video found for the given title")
)

// SearchResolver finds videos by scraping the YouTube results page.
type SearchResolver struct {
	BaseURL string
	Client  *http.Client
}

func NewSearchResolver(client *http.Client) *SearchResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SearchResolver{
		BaseURL: "https://www.youtube.com",
		Client:  client,
	}
}

// SearchFirstVideoURL returns the watch URL of the first result for query.
func (r *SearchResolver) SearchFirstVideoURL(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", r.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	matches := videoPattern.FindStringSubmatch(string(body))
	if len(matches) > 1 {
		return fmt.Sprintf("%s/watch?v=%s", r.BaseURL, matches[1]), nil
	}

	return "", ErrNoVideoMatch
}

// StatusError carries the HTTP status of a failed search so retries can classify it.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("YouTube search failed with status code %d", e.Code)
}

func (e *StatusError) StatusCode() int { return e.Code }
