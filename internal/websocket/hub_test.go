package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpiboard/internal/shared/testutil"
	"kpiboard/pkg/contracts/domain"
)

func decode(t *testing.T, data []byte) Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubStartStopIdempotent(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)

	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()

	assert.NotPanics(t, func() {
		hub.Broadcast(TypeKPIUpdate, nil)
	})
}

func TestHubRestartAfterStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)

	hub.Start()
	hub.Stop()

	require.NotPanics(t, func() {
		hub.Start()
		hub.Register(NewClient(hub, newMockConnection(), "trace-restart", logger))
		assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
		hub.Stop()
	})
	assert.Zero(t, hub.ClientCount())

	// stopped again: calls return instead of blocking on the finished loop
	assert.NotPanics(t, func() {
		hub.Broadcast(TypeKPIUpdate, nil)
		hub.Stop()
	})
}

func TestHubRegisterSendsConnectionMessage(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	conn := newMockConnection()
	client := NewClient(hub, conn, "trace-1", logger)
	hub.Register(client)
	go client.WritePump()

	assert.Eventually(t, func() bool { return len(conn.messages()) == 1 }, time.Second, 5*time.Millisecond)
	msg := decode(t, conn.messages()[0])
	assert.Equal(t, TypeConnection, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	assert.Equal(t, 1, hub.ClientCount())
	testutil.AssertLogAttr(t, handler, "component", "websocket.hub")
}

func TestHubNotifyKPIUpdate(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	conns := []*mockConnection{newMockConnection(), newMockConnection()}
	for _, conn := range conns {
		c := NewClient(hub, conn, "", logger)
		hub.Register(c)
		go c.WritePump()
	}

	hub.NotifyKPIUpdate(map[domain.KPIID][]string{domain.KPILTIR: {"5", "3"}})

	for _, conn := range conns {
		conn := conn
		assert.Eventually(t, func() bool { return len(conn.messages()) == 2 }, time.Second, 5*time.Millisecond)

		var msg struct {
			Type string    `json:"type"`
			Data KPIUpdate `json:"data"`
		}
		require.NoError(t, json.Unmarshal(conn.messages()[1], &msg))
		assert.Equal(t, TypeKPIUpdate, msg.Type)
		assert.Equal(t, []string{"5", "3"}, msg.Data.Rows[domain.KPILTIR])
	}
	assert.EqualValues(t, 2, hub.Stats()["messages_sent"])
}

func TestHubDropsSlowClient(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	// No write pump: the send buffer fills up.
	client := NewClient(hub, newMockConnection(), "", logger)
	hub.Register(client)

	for i := 0; i < sendBuffer+2; i++ {
		hub.Broadcast(TypeKPIUpdate, i)
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, handler.ContainsMessage("Client send buffer full"))
	assert.EqualValues(t, 1, hub.Stats()["dropped_clients"])
}

func TestReadPumpUnregistersOnClose(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	conn := newMockConnection()
	client := NewClient(hub, conn, "", logger)
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	conn.reads <- []byte(`{"type":"heartbeat"}`)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStopClosesClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()

	conn := newMockConnection()
	client := NewClient(hub, conn, "", logger)
	hub.Register(client)
	go client.WritePump()
	go client.ReadPump()

	hub.Stop()
	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.ClientCount())
}

func TestServeWSOverNetwork(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		ServeWS(hub, conn, "", logger)
	}))
	defer srv.Close()

	ws, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, TypeConnection, decode(t, data).Type)

	hub.NotifyKPIUpdate(map[domain.KPIID][]string{domain.KPIPlan: {"100"}})
	_, data, err = ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, TypeKPIUpdate, decode(t, data).Type)
}

func TestHubSetHeartbeat(t *testing.T) {
	hub := NewHub(nil)

	ping, pong := hub.heartbeat()
	assert.Equal(t, pingPeriod, ping)
	assert.Equal(t, pongWait, pong)

	hub.SetHeartbeat(10*time.Second, 20*time.Second)
	ping, pong = hub.heartbeat()
	assert.Equal(t, 10*time.Second, ping)
	assert.Equal(t, 20*time.Second, pong)

	// a ping period not below the pong wait is ignored
	hub.SetHeartbeat(30*time.Second, 20*time.Second)
	ping, _ = hub.heartbeat()
	assert.Equal(t, 10*time.Second, ping)
}
