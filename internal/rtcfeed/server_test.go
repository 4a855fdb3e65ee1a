package rtcfeed

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
)

// TestProtocol_Offer verifies decoding an offer message.
func TestProtocol_Offer(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"t":"offer","sdp":"v=0"}`), &msg))
	assert.Equal(t, "offer", msg.T)
	assert.Equal(t, "v=0", msg.SDP)
}

// TestProtocol_ICE verifies decoding an ICE candidate message.
func TestProtocol_ICE(t *testing.T) {
	var msg Message
	payload := `{"t":"ice","candidate":{"candidate":"candidate:1 1 UDP 2122252543 192.0.2.3 54400 typ host"}}`
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	assert.Equal(t, "ice", msg.T)
	require.NotNil(t, msg.Candidate)
	assert.NotEmpty(t, msg.Candidate.Candidate)
}

// TestConsume_NoViewer verifies events are skipped without error when nobody listens.
func TestConsume_NoViewer(t *testing.T) {
	s, err := NewServer(Options{})
	require.NoError(t, err)

	ev := mouse.New(mouse.Fields{Button: mouse.ButtonLeft, Pressed: true})
	require.NoError(t, s.Consume(context.Background(), ev))
	assert.ErrorIs(t, s.Send([]byte("{}")), ErrNoViewer)
	assert.Equal(t, Stats{Skipped: 1}, s.Stats())
}

// TestServeHTTP_Unauthorized verifies the auth hook runs before the upgrade.
func TestServeHTTP_Unauthorized(t *testing.T) {
	s, err := NewServer(Options{Authorize: func(*http.Request) bool { return false }})
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

// TestServeHTTP_ReplacesViewer verifies a second viewer closes the first.
func TestServeHTTP_ReplacesViewer(t *testing.T) {
	s, err := NewServer(Options{})
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	defer srv.Close()
	defer s.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return s.Stats().Viewer }, time.Second, 5*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()

	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.True(t, s.Stats().Viewer)
}

// TestServeHTTP_EmptyOffer verifies a malformed offer is reported and ends the session.
func TestServeHTTP_EmptyOffer(t *testing.T) {
	s, err := NewServer(Options{})
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{T: "offer"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.T)
	assert.Equal(t, "empty offer", reply.Reason)
	require.Eventually(t, func() bool { return !s.Stats().Viewer }, time.Second, 5*time.Millisecond)
}
