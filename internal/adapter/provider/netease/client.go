// Package netease implements the metadata provider against a NeteaseCloudMusicApi proxy.
package netease

import (
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

// Name is the provider name used in errors, cache keys and RemoteRef.Provider.
const Name = "netease"

// Defaults for a locally running proxy.
const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 10 * time.Second
)

// Client talks to the proxy's /cloudsearch, /song/url/v1 and /lyric endpoints.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. Empty arguments fall back to the defaults.
func NewClient(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		logger:     logger.With(slog.String("provider", Name)),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements ports.MetadataProvider.
func (c *Client) Name() string { return Name }

// Search queries /cloudsearch. The album cover URL becomes the cover reference.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]domain.Track, error) {
	q := url.Values{}
	q.Set("keywords", term)
	q.Set("limit", strconv.Itoa(limit))

	var res struct {
		Code   int `json:"code"`
		Result struct {
			Songs []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
				Ar   []struct {
					Name string `json:"name"`
				} `json:"ar"`
				Al struct {
					Name   string `json:"name"`
					PicURL string `json:"picUrl"`
				} `json:"al"`
				Dt int64 `json:"dt"`
			} `json:"songs"`
		} `json:"result"`
	}
	if err := c.get(ctx, "search", "/cloudsearch", q, &res); err != nil {
		return nil, err
	}
	if res.Code != http.StatusOK {
		return nil, domain.NewProviderError(Name, "search", res.Code, nil)
	}

	tracks := make([]domain.Track, 0, len(res.Result.Songs))
	for _, s := range res.Result.Songs {
		artists := make([]string, 0, len(s.Ar))
		for _, a := range s.Ar {
			artists = append(artists, a.Name)
		}
		id := strconv.FormatInt(s.ID, 10)
		tracks = append(tracks, domain.Track{
			ID:           id,
			Title:        s.Name,
			Artist:       strings.Join(artists, ", "),
			Album:        s.Al.Name,
			DurationHint: float64(s.Dt) / 1000,
			Remote: &domain.RemoteRef{
				Provider: Name,
				StreamID: id,
				CoverRef: s.Al.PicURL,
				LyricRef: id,
			},
		})
	}

	c.logger.Debug("search", slog.String("term", term), slog.Int("results", len(tracks)))
	return tracks, nil
}

// StreamURL queries /song/url/v1 at the quality level closest to bitrate.
func (c *Client) StreamURL(ctx context.Context, _, streamID string, bitrate int) (string, error) {
	q := url.Values{}
	q.Set("id", streamID)
	q.Set("level", levelFor(bitrate))

	var res struct {
		Code int `json:"code"`
		Data []struct {
			ID  int64  `json:"id"`
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := c.get(ctx, "url", "/song/url/v1", q, &res); err != nil {
		return "", err
	}
	if res.Code != http.StatusOK {
		return "", domain.NewProviderError(Name, "url", res.Code, nil)
	}
	if len(res.Data) == 0 {
		return "", nil
	}
	return res.Data[0].URL, nil
}

// CoverURL sizes the album picture URL carried in coverRef. No request is made.
func (c *Client) CoverURL(_ context.Context, _, coverRef string, size int) (string, error) {
	if coverRef == "" {
		return "", nil
	}
	u, err := url.Parse(coverRef)
	if err != nil {
		return "", domain.NewProviderError(Name, "pic", 0, fmt.Errorf("bad cover url: %w", err))
	}
	q := u.Query()
	q.Set("param", fmt.Sprintf("%dy%d", size, size))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// LyricText queries /lyric and returns the original-language lyric.
func (c *Client) LyricText(ctx context.Context, _, lyricRef string) (string, error) {
	q := url.Values{}
	q.Set("id", lyricRef)

	var res struct {
		Code int `json:"code"`
		Lrc  struct {
			Lyric string `json:"lyric"`
		} `json:"lrc"`
	}
	if err := c.get(ctx, "lyric", "/lyric", q, &res); err != nil {
		return "", err
	}
	if res.Code != http.StatusOK {
		return "", domain.NewProviderError(Name, "lyric", res.Code, nil)
	}
	return res.Lrc.Lyric, nil
}

// levelFor maps a bitrate in kbps onto the proxy's quality levels.
func levelFor(bitrate int) string {
	switch {
	case bitrate > 320:
		return "lossless"
	case bitrate >= 320:
		return "exhigh"
	case bitrate >= 192:
		return "higher"
	default:
		return "standard"
	}
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return domain.NewProviderError(Name, op, 0, err)
	}
	// without the pc cookie the proxy returns trial-length URLs
	req.AddCookie(&http.Cookie{Name: "os", Value: "pc"})

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

var _ ports.MetadataProvider = (*Client)(nil)
