package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/frudas24/mousetap/internal/config"
	"github.com/frudas24/mousetap/internal/decoder"
	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/frudas24/mousetap/internal/pipeline"
	"github.com/frudas24/mousetap/internal/replay"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testRules = `
rules:
  - name: eat-back
    button: back
    action: suppress
`

// newTestApp builds an App over a temporary rule file.
func newTestApp(t *testing.T, token string) *App {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))
	a, err := New(config.Config{
		DataDir:       dir,
		RulesPath:     path,
		FeedToken:     token,
		FeedQueue:     8,
		StopOnHandled: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// TestHandle_RulesDecideVerdict verifies rule suppression reaches the caller.
func TestHandle_RulesDecideVerdict(t *testing.T) {
	a := newTestApp(t, "")

	res, err := a.Handle(context.Background(), pipeline.Notification{
		Msg:     decoder.MsgXButtonDown,
		Payload: &decoder.Payload{MouseData: 0x00010000},
		Scope:   decoder.ScopeSystem,
	})
	require.NoError(t, err)
	assert.True(t, res.Verdict.Suppress)

	res, err = a.Handle(context.Background(), pipeline.Notification{
		Msg:     decoder.MsgXButtonDown,
		Payload: &decoder.Payload{MouseData: 0x00020000},
		Scope:   decoder.ScopeSystem,
	})
	require.NoError(t, err)
	assert.False(t, res.Verdict.Suppress)
	assert.Equal(t, uint64(1), a.Rules().Hits()["eat-back"])
}

// TestFeed_ReceivesFinalVerdict verifies websocket clients see the handled state set by rules.
func TestFeed_ReceivesFinalVerdict(t *testing.T) {
	a := newTestApp(t, "")
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.Feed().Clients() == 1 }, time.Second, 5*time.Millisecond)

	src := replay.NewReader(strings.NewReader(`{"t":0,"msg":"WM_XBUTTONDOWN","scope":"system","x":3,"y":4,"mouseData":65536}`))
	count, err := a.Replay(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap mouse.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "x1", snap.Button)
	assert.True(t, snap.Handled)
	assert.Equal(t, mouse.Point{X: 3, Y: 4}, snap.Pos)
}

// TestHandleStats_RequiresToken verifies the API honours the feed token.
func TestHandleStats_RequiresToken(t *testing.T) {
	a := newTestApp(t, "secret")
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := a.Handle(context.Background(), pipeline.Notification{
		Msg:     decoder.MsgMouseMove,
		Payload: &decoder.Payload{},
	})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats?token=secret", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Dispatch.Dispatched)
	assert.Zero(t, resp.Dispatch.Suppressed)
	assert.Contains(t, resp.RuleHits, "eat-back")
	assert.Equal(t, uint64(1), resp.RTC.Skipped)
}

// TestHealthz verifies the liveness probe needs no token.
func TestHealthz(t *testing.T) {
	a := newTestApp(t, "secret")
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/monitors?token=secret", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestViewerPage verifies the embedded viewer is served at the root.
func TestViewerPage(t *testing.T) {
	a := newTestApp(t, "")
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `createDataChannel("events"`)
}
