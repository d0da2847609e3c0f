package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/entries"
	"github.com/hypermind/hypermind-agent/internal/manager"
	"github.com/hypermind/hypermind-agent/internal/scraper"
	wsHub "github.com/hypermind/hypermind-agent/internal/ws"
)

// --- helpers ----------------------------------------------------------------

// countPoller reports an active node count that tests can change.
type countPoller struct{ active atomic.Int32 }

func (p *countPoller) Poll(_ context.Context, ep config.EndpointConfig) (*scraper.Snapshot, error) {
	n := int(p.active.Load())
	return &scraper.Snapshot{
		ActiveNodes: n,
		ScaleMin:    ep.ScaleMin,
		ScaleMax:    ep.ScaleMax,
		ScaleRatio:  scraper.ScaleRatio(n, ep.ScaleMin, ep.ScaleMax),
		FetchedAt:   time.Now().UTC(),
	}, nil
}

type fixture struct {
	store  *entries.Store
	mgr    *manager.Manager
	poller *countPoller
	hub    *wsHub.Hub
	url    string
}

func start(t *testing.T, keepalive time.Duration) *fixture {
	t.Helper()
	f := &fixture{store: entries.New(), poller: &countPoller{}}
	f.poller.active.Store(5)
	f.mgr = manager.New(f.store, f.poller, time.Hour)
	f.hub = wsHub.New(f.store, f.mgr, keepalive)

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(f.hub)
	go f.hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
		f.mgr.Close()
	})
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return f
}

func (f *fixture) addEntry(t *testing.T) *entries.Entry {
	t.Helper()
	ep := config.EndpointConfig{Host: "node", Port: 3000, ScaleMax: 100}
	e, err := f.store.Add(&entries.Entry{UniqueID: ep.UniqueID(), Title: ep.Title(), Data: ep.Data()})
	require.NoError(t, err)
	require.NoError(t, f.mgr.Setup(context.Background(), e))
	return e
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m wsHub.Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

// readUntil reads messages until one satisfies ok. Pushes coalesce, so a
// stale message may arrive before the expected one.
func readUntil(t *testing.T, conn *websocket.Conn, ok func(wsHub.Message) bool) wsHub.Message {
	t.Helper()
	for i := 0; i < 10; i++ {
		if m := read(t, conn); ok(m) {
			return m
		}
	}
	t.Fatal("expected message not received")
	return wsHub.Message{}
}

// --- tests ------------------------------------------------------------------

func TestHub_ConnectReceivesSensors(t *testing.T) {
	f := start(t, time.Hour)
	e := f.addEntry(t)

	m := read(t, dial(t, f.url))
	assert.Equal(t, "sensors", m.Event)
	require.Len(t, m.Data, 2)
	assert.Equal(t, e.ID+"_active_nodes", m.Data[0].UniqueID)
	require.NotNil(t, m.Data[0].Value)
	assert.Equal(t, 5, *m.Data[0].Value)
	assert.Equal(t, 0.05, m.Data[0].Attributes["scale_ratio"])
}

func TestHub_EmptyWithoutEntries(t *testing.T) {
	f := start(t, time.Hour)
	m := read(t, dial(t, f.url))
	assert.Equal(t, "sensors", m.Event)
	assert.Empty(t, m.Data)
}

func TestHub_PushesAfterRefresh(t *testing.T) {
	f := start(t, time.Hour)
	e := f.addEntry(t)
	conn := dial(t, f.url)
	read(t, conn)

	require.Eventually(t, func() bool { return f.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	f.poller.active.Store(9)
	c, ok := f.mgr.Coordinator(e.ID)
	require.True(t, ok)
	require.NoError(t, c.Refresh(context.Background()))

	m := readUntil(t, conn, func(m wsHub.Message) bool {
		return len(m.Data) == 2 && m.Data[0].Value != nil && *m.Data[0].Value == 9
	})
	assert.True(t, m.Data[0].Available)
}

func TestHub_PushesOnUnload(t *testing.T) {
	f := start(t, time.Hour)
	e := f.addEntry(t)
	conn := dial(t, f.url)
	require.Len(t, read(t, conn).Data, 2)
	require.Eventually(t, func() bool { return f.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	f.mgr.Unload(e.ID)
	readUntil(t, conn, func(m wsHub.Message) bool { return len(m.Data) == 0 })
}

func TestHub_Keepalive(t *testing.T) {
	f := start(t, 20*time.Millisecond)
	conn := dial(t, f.url)
	read(t, conn)
	read(t, conn)
}

func TestHub_CountTracksClients(t *testing.T) {
	f := start(t, time.Hour)
	conn := dial(t, f.url)
	read(t, conn)
	assert.Eventually(t, func() bool { return f.hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return f.hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_RejectsPlainHTTP(t *testing.T) {
	f := start(t, time.Hour)
	rr := httptest.NewRecorder()
	f.hub.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
