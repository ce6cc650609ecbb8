package gdstudio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/logger"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(logger.NewTestLogger(), srv.URL, "", 0)
}

func TestSearch(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api.php", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("types"))
		assert.Equal(t, "netease", q.Get("source"))
		assert.Equal(t, "晴天 live", q.Get("name"))
		assert.Equal(t, "20", q.Get("count"))

		_, _ = w.Write([]byte(`[
			{"id": 186016, "name": "晴天", "artist": ["周杰伦"], "album": "叶惠美", "source": "netease", "pic_id": "109951", "lyric_id": 186016},
			{"id": "77", "name": "Duet", "artist": ["A", "B"], "album": "", "source": "kuwo", "pic_id": "", "lyric_id": ""},
			{"id": "88", "name": "Solo", "artist": "C", "source": "", "pic_id": null},
			{"name": "no id"}
		]`))
	})

	tracks, err := c.Search(context.Background(), "晴天 live", 20)
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	assert.Equal(t, domain.Track{
		ID:     "186016",
		Title:  "晴天",
		Artist: "周杰伦",
		Album:  "叶惠美",
		Remote: &domain.RemoteRef{Provider: "netease", StreamID: "186016", CoverRef: "109951", LyricRef: "186016"},
	}, tracks[0])
	assert.Equal(t, "A, B", tracks[1].Artist)
	assert.Equal(t, "kuwo", tracks[1].Remote.Provider)
	assert.Empty(t, tracks[1].Album)
	assert.Equal(t, "C", tracks[2].Artist)
	assert.Equal(t, "netease", tracks[2].Remote.Provider)
	assert.False(t, tracks[0].IsResolved())
}

func TestResolveEndpoints(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("types") {
		case "url":
			assert.Equal(t, "320", q.Get("br"))
			assert.Equal(t, "kuwo", q.Get("source"))
			_, _ = w.Write([]byte(`{"url": "https://cdn.test/` + q.Get("id") + `.mp3", "br": 320}`))
		case "pic":
			assert.Equal(t, "500", q.Get("size"))
			_, _ = w.Write([]byte(`{"url": "https://img.test/p.jpg"}`))
		case "lyric":
			_, _ = w.Write([]byte(`{"lyric": "[00:01.00]hi", "tlyric": ""}`))
		default:
			http.Error(w, "bad", http.StatusBadRequest)
		}
	})
	ctx := context.Background()

	u, err := c.StreamURL(ctx, "kuwo", "42", 320)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/42.mp3", u)

	p, err := c.CoverURL(ctx, "", "pic", 500)
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/p.jpg", p)

	l, err := c.LyricText(ctx, "", "42")
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]hi", l)
}

func TestEmptyURLIsAbsent(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"url": ""}`))
	})

	u, err := c.StreamURL(context.Background(), "", "1", 320)
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestHTTPFailures(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("types") == "search" {
			_, _ = w.Write([]byte(`<html>blocked</html>`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})
	ctx := context.Background()

	_, err := c.StreamURL(ctx, "", "1", 320)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
	var pErr *domain.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, http.StatusForbidden, pErr.Status)
	assert.Equal(t, "url", pErr.Op)

	_, err = c.Search(ctx, "x", 5)
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(logger.NewTestLogger(), base, "", 0)
	_, err := c.LyricText(context.Background(), "", "1")
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}
