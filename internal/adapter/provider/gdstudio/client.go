// Package gdstudio implements the metadata provider against the gdstudio music API.
package gdstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

// Name is the provider name used in errors and cache keys.
const Name = "gdstudio"

// Defaults for the public API.
const (
	DefaultBaseURL = "https://music-api.gdstudio.xyz"
	DefaultSource  = "netease"
	DefaultTimeout = 10 * time.Second
)

// Client talks to {base}/api.php. Every call is a single attempt.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	source     string
	httpClient *http.Client
}

// NewClient creates a client. Empty arguments fall back to the defaults.
func NewClient(logger *slog.Logger, baseURL, source string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if source == "" {
		source = DefaultSource
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		logger:     logger.With(slog.String("provider", Name)),
		baseURL:    strings.TrimRight(baseURL, "/"),
		source:     source,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements ports.MetadataProvider.
func (c *Client) Name() string { return Name }

// Search returns unresolved tracks for term.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]domain.Track, error) {
	q := url.Values{}
	q.Set("types", "search")
	q.Set("source", c.source)
	q.Set("name", term)
	q.Set("count", strconv.Itoa(limit))

	var items []searchItem
	if err := c.get(ctx, "search", q, &items); err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(items))
	for _, item := range items {
		id := string(item.ID)
		if id == "" {
			continue
		}
		source := item.Source
		if source == "" {
			source = c.source
		}
		tracks = append(tracks, domain.Track{
			ID:     id,
			Title:  item.Name,
			Artist: strings.Join(item.Artist, ", "),
			Album:  string(item.Album),
			Remote: &domain.RemoteRef{
				Provider: source,
				StreamID: id,
				CoverRef: string(item.PicID),
				LyricRef: string(item.LyricID),
			},
		})
	}

	c.logger.Debug("search", slog.String("term", term), slog.Int("results", len(tracks)))
	return tracks, nil
}

// StreamURL returns the playable URL for streamID.
func (c *Client) StreamURL(ctx context.Context, source, streamID string, bitrate int) (string, error) {
	q := url.Values{}
	q.Set("types", "url")
	q.Set("source", c.sourceOr(source))
	q.Set("id", streamID)
	q.Set("br", strconv.Itoa(bitrate))

	var res struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "url", q, &res); err != nil {
		return "", err
	}
	return res.URL, nil
}

// CoverURL returns the cover image URL for coverRef.
func (c *Client) CoverURL(ctx context.Context, source, coverRef string, size int) (string, error) {
	q := url.Values{}
	q.Set("types", "pic")
	q.Set("source", c.sourceOr(source))
	q.Set("id", coverRef)
	q.Set("size", strconv.Itoa(size))

	var res struct {
		URL string `json:"url"`
	}
	if err := c.get(ctx, "pic", q, &res); err != nil {
		return "", err
	}
	return res.URL, nil
}

// LyricText returns raw time-tagged lyric text for lyricRef.
func (c *Client) LyricText(ctx context.Context, source, lyricRef string) (string, error) {
	q := url.Values{}
	q.Set("types", "lyric")
	q.Set("source", c.sourceOr(source))
	q.Set("id", lyricRef)

	var res struct {
		Lyric string `json:"lyric"`
	}
	if err := c.get(ctx, "lyric", q, &res); err != nil {
		return "", err
	}
	return res.Lyric, nil
}

func (c *Client) sourceOr(source string) string {
	if source == "" {
		return c.source
	}
	return source
}

func (c *Client) get(ctx context.Context, op string, q url.Values, out any) error {
	endpoint := c.baseURL + "/api.php?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.NewProviderError(Name, op, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewProviderError(Name, op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewProviderError(Name, op, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewProviderError(Name, op, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

type searchItem struct {
	ID      flexString `json:"id"`
	Name    string     `json:"name"`
	Artist  artistList `json:"artist"`
	Album   flexString `json:"album"`
	Source  string     `json:"source"`
	PicID   flexString `json:"pic_id"`
	LyricID flexString `json:"lyric_id"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// artistList accepts a single name or a list of names.
type artistList []string

func (a *artistList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = nil
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*a = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*a = []string{s}
	return nil
}

var _ ports.MetadataProvider = (*Client)(nil)
