package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kpiboard/internal/errors"
	"kpiboard/internal/display"
	"kpiboard/internal/poller"
	"kpiboard/internal/services"
	"kpiboard/internal/shared/testutil"
	ws "kpiboard/internal/websocket"
	"kpiboard/pkg/contracts/domain"
)

type fakePoller struct{ status poller.Status }

func (f fakePoller) Status() poller.Status { return f.status }

func newTable(t *testing.T) *display.Table {
	t.Helper()
	table, err := display.Load(strings.NewReader(testutil.DisplayHTML("LTIR", "Costo Bodega")), "#tabla-kpi tbody tr")
	require.NoError(t, err)
	return table
}

func TestDisplayHandler_Page(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	table := newTable(t)
	require.True(t, table.SetCell(0, 0, "5"))

	h := NewDisplayHandler(table, nil, logger)
	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `id="tabla-kpi"`)
	assert.Contains(t, body, `data-kpi="ltir"`)
	assert.Contains(t, body, "<td>5</td>")
}

func TestDisplayHandler_Snapshot(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	table := newTable(t)
	table.SetCell(1, 9, "4")

	h := NewDisplayHandler(table, nil, logger)
	rec := httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/api/display", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap display.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, domain.KPIBodega, snap.Rows[1].KPI)
	assert.Equal(t, "4", snap.Rows[1].Values[9])
}

func TestDisplayHandler_PollerStatus(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	disabled := NewDisplayHandler(newTable(t), nil, logger)
	rec := httptest.NewRecorder()
	disabled.PollerStatus(rec, httptest.NewRequest(http.MethodGet, "/api/poller", nil))
	assert.JSONEq(t, `{"running":false,"enabled":false}`, rec.Body.String())

	enabled := NewDisplayHandler(newTable(t), fakePoller{poller.Status{Running: true, Source: "csv", Cycles: 3}}, logger)
	rec = httptest.NewRecorder()
	enabled.PollerStatus(rec, httptest.NewRequest(http.MethodGet, "/api/poller", nil))
	var st poller.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Running)
	assert.Equal(t, "csv", st.Source)
	assert.Equal(t, uint64(3), st.Cycles)
}

func TestDisplayHandler_Export(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	table := newTable(t)
	table.SetCell(0, 1, "3")
	table.SetCell(0, 2, "")
	h := NewDisplayHandler(table, nil, logger)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/display/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="kpi.csv"`)
	// untouched cells keep the placeholder, cleared cells export as empty fields
	assert.Contains(t, rec.Body.String(), "ltir,LTIR,-,3,,-")

	rec = httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/display/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/display/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_PARAMETER")
}

func TestHealthHandler_Readiness(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	notReady := NewHealthHandler(services.NewHealthService(fakePoller{}, nil, logger), logger)
	rec := httptest.NewRecorder()
	notReady.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), services.StatusNotReady)

	ready := NewHealthHandler(services.NewHealthService(fakePoller{poller.Status{LastSuccess: time.Now()}}, nil, logger), logger)
	rec = httptest.NewRecorder()
	ready.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ready.Version(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Contains(t, rec.Body.String(), `"api_version"`)
}

func TestClientLogHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLevel  slog.Level
	}{
		{"error entry", `{"level":"error","message":"websocket closed","source":"board"}`, http.StatusOK, slog.LevelError},
		{"level defaults to info", `{"message":"page loaded"}`, http.StatusOK, slog.LevelInfo},
		{"unknown level", `{"level":"fatal","message":"x"}`, http.StatusBadRequest, 0},
		{"missing message", `{"level":"info"}`, http.StatusBadRequest, 0},
		{"malformed", `{`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			h := NewClientLogHandler(logger, apperrors.NewErrorHandler(logger, false))

			req := httptest.NewRequest(http.MethodPost, "/api/client-log", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.Handle(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Len(t, handler.GetRecordsByLevel(tt.wantLevel), 1)
				assert.JSONEq(t, `{"success":true}`, rec.Body.String())
			}
		})
	}
}

func TestWebSocketHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := ws.NewHub(logger)
	hub.Start()
	defer hub.Stop()

	h := NewWebSocketHandler(hub, 1024, 1024, []string{"https://allowed.example"}, logger)
	srv := httptest.NewServer(h)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	t.Run("rejects foreign origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := gorilla.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("streams updates", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://allowed.example"}}
		conn, _, err := gorilla.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), ws.TypeConnection)

		hub.NotifyKPIUpdate(map[domain.KPIID][]string{domain.KPILTIR: {"5"}})
		_, data, err = conn.ReadMessage()
		require.NoError(t, err)

		var msg ws.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, ws.TypeKPIUpdate, msg.Type)
	})

}
