package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpiboard/internal/config"
	"kpiboard/internal/display"
	"kpiboard/internal/shared/testutil"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Poller.Interval = time.Hour
	cfg.Poller.Highlight = 10 * time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(cfg, logger)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_WithoutSource(t *testing.T) {
	a := newTestApp(t, testConfig())
	assert.Nil(t, a.Poller)

	t.Run("kpi endpoint reports missing config", func(t *testing.T) {
		rec := get(t, a.Router, "/api/kpi")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"CONFIG_MISSING"}`, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("kpi preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/kpi", nil)
		req.Header.Set("Origin", "https://intranet.example")
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://intranet.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("board page", func(t *testing.T) {
		rec := get(t, a.Router, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `id="tabla-kpi"`)
	})

	t.Run("ready without polling", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(t, a.Router, "/api/health/ready").Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := get(t, a.Router, "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := get(t, a.Router, "/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "/errors/not-found")
	})
}

func TestNew_MalformedKeyDisablesPolling(t *testing.T) {
	cfg := testConfig()
	cfg.Source.SpreadsheetID = "sheet-id"
	cfg.Source.ServiceAccountKey = "{not json"

	a := newTestApp(t, cfg)
	assert.Nil(t, a.Poller)

	rec := get(t, a.Router, "/api/kpi")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"INVALID_SERVICE_KEY"}`, rec.Body.String())
}

func TestServe_PollsCSVSource(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(testutil.SampleCSV()))
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.Source.CSVURL = upstream.URL + "/export?format=csv"

	a := newTestApp(t, cfg)
	require.NotNil(t, a.Poller)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/display")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var snap display.Snapshot
		if json.NewDecoder(resp.Body).Decode(&snap) != nil {
			return false
		}
		for _, row := range snap.Rows {
			if row.KPI == "ltir" {
				return row.Values[0] == "5" && row.Values[1] == "3"
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/api/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/")
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(page), "<td>12.5</td>")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.False(t, a.Poller.Status().Running)
}
