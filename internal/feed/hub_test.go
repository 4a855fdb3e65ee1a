package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + query
}

// TestHub_DeliversSnapshots verifies a connected client receives tagged snapshots.
func TestHub_DeliversSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(Options{
		Token:  "secret",
		Locate: func(x, _ int32) int {
			if x < 0 {
				return 2
			}
			return 1
		},
	})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=secret"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ev := mouse.New(mouse.Fields{Button: mouse.ButtonX1, Pressed: true, Pos: mouse.Point{X: -10, Y: 4}})
	ev.SetHandled()
	require.NoError(t, hub.Consume(context.Background(), ev))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap mouse.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "press", snap.Kind)
	assert.Equal(t, "x1", snap.Button)
	assert.True(t, snap.Handled)
	assert.Equal(t, 2, snap.Monitor)
	assert.Equal(t, mouse.Point{X: -10, Y: 4}, snap.Pos)

	require.Eventually(t, func() bool { return hub.Stats().Sent == 1 }, time.Second, 5*time.Millisecond)
}

// TestHub_RejectsBadToken verifies the token check happens before the upgrade.
func TestHub_RejectsBadToken(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(Options{Token: "secret"})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=nope"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	header := http.Header{"Authorization": []string{"Bearer secret"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	_ = conn.Close()
	hub.Close()
}

// TestHub_CloseDisconnectsClients verifies Close ends client sessions.
func TestHub_CloseDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(Options{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Clients())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}

// TestBroadcast_DropsWhenQueueFull verifies slow clients lose events instead of blocking.
func TestBroadcast_DropsWhenQueueFull(t *testing.T) {
	hub := NewHub(Options{Queue: 1})
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	hub.clients[c] = struct{}{}

	hub.Broadcast([]byte("a"))
	hub.Broadcast([]byte("b"))
	hub.Broadcast([]byte("c"))

	assert.Equal(t, uint64(2), hub.Stats().Dropped)
	assert.Equal(t, []byte("a"), <-c.send)
}
