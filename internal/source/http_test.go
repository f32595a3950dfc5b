package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBust(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name string
		in   string
		want url.Values
	}{
		{"no query", "https://example.com/export", url.Values{"t": {"1700000000123"}}},
		{"existing query", "https://example.com/export?format=csv&gid=0", url.Values{"t": {"1700000000123"}, "format": {"csv"}, "gid": {"0"}}},
		{"replaces previous t", "https://example.com/api/kpi?t=1", url.Values{"t": {"1700000000123"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CacheBust(tt.in, now)
			require.NoError(t, err)
			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Query())
		})
	}

	_, err := CacheBust("://bad", now)
	assert.Error(t, err)
}

func TestFetcherDefeatsCaching(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Query().Get("t"))
		assert.Equal(t, "no-cache, no-store", r.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newFetcher(srv.Client())
	tick := time.UnixMilli(1000)
	f.now = func() time.Time {
		tick = tick.Add(5 * time.Second)
		return tick
	}

	for i := 0; i < 2; i++ {
		body, err := f.get(context.Background(), srv.URL+"/export", "text/csv")
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
	}

	require.Len(t, seen, 2)
	assert.Equal(t, "6000", seen[0])
	assert.Equal(t, "11000", seen[1])
}

func TestFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newFetcher(srv.Client()).get(context.Background(), srv.URL, "")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "nope")
	assert.Contains(t, statusErr.Error(), "403")
}

func TestFetcherHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newFetcher(srv.Client()).get(ctx, srv.URL, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
