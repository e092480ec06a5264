package feed

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamiefw/flux/internal/types"
)

func newTestClient(t *testing.T, attempts int) (*Client, *[]time.Duration) {
	t.Helper()
	var sleeps []time.Duration
	c := NewClient(
		&http.Client{Timeout: 5 * time.Second},
		"test",
		RetryPolicy{MaxAttempts: attempts, Delay: 2 * time.Second},
		"flux-test/1.0",
		nil,
		WithSleepFunc(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)
	return c, &sleeps
}

func TestClientGetBytes(t *testing.T) {
	t.Run("returns body on first success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "flux-test/1.0", r.Header.Get("User-Agent"))
			w.Write([]byte("payload"))
		}))
		defer srv.Close()

		c, sleeps := newTestClient(t, 3)
		body, err := c.GetBytes(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), body)
		assert.Empty(t, *sleeps)
	})

	t.Run("retries server errors until success", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte("eventually"))
		}))
		defer srv.Close()

		c, sleeps := newTestClient(t, 5)
		body, err := c.GetBytes(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, []byte("eventually"), body)
		assert.EqualValues(t, 3, hits.Load())
		assert.Len(t, *sleeps, 2)
		assert.Equal(t, 2*time.Second, (*sleeps)[0])
	})

	t.Run("exhausts retries on persistent failure", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c, _ := newTestClient(t, 3)
		_, err := c.GetBytes(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Equal(t, types.ErrCodeFetchExhausted, types.CodeOf(err))
		assert.EqualValues(t, 3, hits.Load())
	})

	t.Run("open circuit short-circuits remaining attempts", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c, _ := newTestClient(t, 10)
		_, err := c.GetBytes(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Equal(t, types.ErrCodeFetchCircuitOpen, types.CodeOf(err))
		// The breaker trips after six consecutive failures; attempt seven
		// never reaches the server.
		assert.EqualValues(t, 6, hits.Load())
	})

	t.Run("canceled context does not burn attempts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c, sleeps := newTestClient(t, 5)
		_, err := c.GetBytes(ctx, srv.URL)
		require.Error(t, err)
		assert.Equal(t, types.ErrCodeFetchFailed, types.CodeOf(err))
		assert.Empty(t, *sleeps)
	})

	t.Run("gunzips payload with gzip magic bytes", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(`{"compressed":true}`))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Deliberately no Content-Encoding header; some agencies serve
			// pre-compressed dumps without one.
			w.Write(buf.Bytes())
		}))
		defer srv.Close()

		c, _ := newTestClient(t, 1)
		body, err := c.GetBytes(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"compressed":true}`), body)
	})
}

func TestClientGetJSON(t *testing.T) {
	t.Run("unmarshals valid body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name":"station_status"}`))
		}))
		defer srv.Close()

		c, _ := newTestClient(t, 1)
		var out struct {
			Name string `json:"name"`
		}
		require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
		assert.Equal(t, "station_status", out.Name)
	})

	t.Run("invalid JSON is a decode error, not retried", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()

		c, _ := newTestClient(t, 3)
		var out map[string]any
		err := c.GetJSON(context.Background(), srv.URL, &out)
		require.Error(t, err)
		assert.Equal(t, types.ErrCodeDecodeFailed, types.CodeOf(err))
		assert.EqualValues(t, 1, hits.Load())
	})
}

func TestURLWithQuery(t *testing.T) {
	t.Run("no params returns base unchanged", func(t *testing.T) {
		assert.Equal(t, "https://api.example.com/feed", URLWithQuery("https://api.example.com/feed", nil))
	})

	t.Run("appends encoded params", func(t *testing.T) {
		got := URLWithQuery("https://api.example.com/feed", map[string][]string{
			"api_key": {"abc"},
			"agency":  {"SF"},
		})
		assert.Equal(t, "https://api.example.com/feed?agency=SF&api_key=abc", got)
	})

	t.Run("uses ampersand when base already has a query", func(t *testing.T) {
		got := URLWithQuery("https://api.example.com/feed?version=2", map[string][]string{
			"key": {"abc"},
		})
		assert.Equal(t, "https://api.example.com/feed?version=2&key=abc", got)
	})
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "api.example.com", hostOf("https://api.example.com/feed?api_key=secret"))
	assert.Equal(t, "upstream", hostOf("://not-a-url"))
}
