package netease

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

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(logger.NewTestLogger(), srv.URL+"/", 0)
}

func TestSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cloudsearch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "city pop", r.URL.Query().Get("keywords"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		if cookie, err := r.Cookie("os"); assert.NoError(t, err) {
			assert.Equal(t, "pc", cookie.Value)
		}

		_, _ = w.Write([]byte(`{"code":200,"result":{"songs":[
			{"id":1001,"name":"Plastic Love","ar":[{"name":"Mariya Takeuchi"}],"al":{"name":"Variety","picUrl":"https://p.test/1.jpg"},"dt":474000},
			{"id":1002,"name":"Stay","ar":[{"name":"A"},{"name":"B"}],"al":{"name":"","picUrl":""},"dt":0}
		]}}`))
	})
	c := newTestClient(t, mux)

	tracks, err := c.Search(context.Background(), "city pop", 5)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "1001", tracks[0].ID)
	assert.Equal(t, "Mariya Takeuchi", tracks[0].Artist)
	assert.Equal(t, 474.0, tracks[0].DurationHint)
	assert.Equal(t, &domain.RemoteRef{Provider: Name, StreamID: "1001", CoverRef: "https://p.test/1.jpg", LyricRef: "1001"}, tracks[0].Remote)
	assert.Equal(t, "A, B", tracks[1].Artist)
}

func TestStreamURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/song/url/v1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "exhigh", r.URL.Query().Get("level"))
		if r.URL.Query().Get("id") == "404" {
			_, _ = w.Write([]byte(`{"code":200,"data":[{"id":404,"url":null}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"data":[{"id":1,"url":"https://m.test/1.mp3"}]}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	u, err := c.StreamURL(ctx, Name, "1", 320)
	require.NoError(t, err)
	assert.Equal(t, "https://m.test/1.mp3", u)

	u, err = c.StreamURL(ctx, Name, "404", 320)
	require.NoError(t, err)
	assert.Empty(t, u, "a null url means absent")
}

func TestLyricText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lyric", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"lrc":{"lyric":"[00:01.00]a"},"tlyric":{"lyric":"[00:01.00]b"}}`))
	})
	c := newTestClient(t, mux)

	text, err := c.LyricText(context.Background(), Name, "1")
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]a", text)
}

func TestAPIErrorCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lyric", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":-460,"msg":"Cheating"}`))
	})
	mux.HandleFunc("/cloudsearch", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.LyricText(ctx, Name, "1")
	var pErr *domain.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, -460, pErr.Status)

	_, err = c.Search(ctx, "x", 1)
	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
}

func TestCoverURL(t *testing.T) {
	c := NewClient(logger.NewTestLogger(), "", 0)
	ctx := context.Background()

	u, err := c.CoverURL(ctx, Name, "https://p.test/1.jpg", 500)
	require.NoError(t, err)
	assert.Equal(t, "https://p.test/1.jpg?param=500y500", u)

	u, err = c.CoverURL(ctx, Name, "", 500)
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, "standard", levelFor(128))
	assert.Equal(t, "higher", levelFor(192))
	assert.Equal(t, "exhigh", levelFor(320))
	assert.Equal(t, "lossless", levelFor(999))
}
