package rtcfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frudas24/mousetap/internal/dispatch"
	"github.com/frudas24/mousetap/internal/logging"
	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoViewer is returned by Send when no data channel is open.
var ErrNoViewer = errors.New("no viewer connected")

// Options configures a Server.
type Options struct {
	// Authorize gates the signaling upgrade; nil allows everyone.
	Authorize func(*http.Request) bool
	// ICEServers are passed to every peer connection.
	ICEServers []webrtc.ICEServer
	Locate     func(x, y int32) int
	Logger     *zap.Logger
}

// Stats are the server counters.
type Stats struct {
	Viewer  bool   `json:"viewer"`
	Sent    uint64 `json:"sent"`
	Skipped uint64 `json:"skipped"`
}

// Server handles signaling for a single viewer and pushes events over the
// viewer's data channel. A new viewer replaces the current one.
type Server struct {
	mu       sync.Mutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	api      *webrtc.API
	config   webrtc.Configuration
	auth     func(*http.Request) bool
	locate   func(x, y int32) int
	logger   *zap.Logger

	conn    *websocket.Conn
	peer    *webrtc.PeerConnection
	channel *webrtc.DataChannel

	sent    atomic.Uint64
	skipped atomic.Uint64
}

// Ensure Server implements the consumer interface.
var _ dispatch.Consumer = (*Server)(nil)

// NewServer creates a signaling server.
func NewServer(opts Options) (*Server, error) {
	api, err := newAPI()
	if err != nil {
		return nil, err
	}
	return &Server{
		api:    api,
		config: webrtc.Configuration{ICEServers: opts.ICEServers},
		auth:   opts.Authorize,
		locate: opts.Locate,
		logger: logging.OrNop(opts.Logger).Named("rtcfeed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}, nil
}

// ServeHTTP upgrades the request and runs the signaling loop.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil && !s.auth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.acceptConn(conn)
	defer s.cleanupConn(conn)

	peer, err := s.api.NewPeerConnection(s.config)
	if err != nil {
		s.logger.Warn("create peer failed", zap.Error(err))
		return
	}
	if err := s.attachPeer(conn, peer); err != nil {
		_ = peer.Close()
		return
	}

	peer.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ChannelLabel {
			return
		}
		dc.OnOpen(func() { s.attachChannel(peer, dc) })
		dc.OnClose(func() { s.detachChannel(dc) })
	})
	peer.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		candidate := c.ToJSON()
		_ = s.sendTo(conn, Message{T: "ice", Candidate: &candidate})
	})
	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Debug("peer state", zap.String("state", state.String()))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if err := s.handleMessage(conn, peer, msg); err != nil {
			s.logger.Warn("signaling failed", zap.String("t", msg.T), zap.Error(err))
			_ = s.sendTo(conn, Message{T: "error", Reason: err.Error()})
			return
		}
	}
}

// acceptConn makes conn the active viewer, closing any previous one.
func (s *Server) acceptConn(conn *websocket.Conn) {
	s.mu.Lock()
	oldConn, oldPeer := s.conn, s.peer
	s.conn = conn
	s.peer = nil
	s.channel = nil
	s.mu.Unlock()

	if oldConn == nil {
		return
	}
	s.logger.Info("viewer replaced")
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "replaced by a new viewer")
	_ = oldConn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	_ = oldConn.Close()
	if oldPeer != nil {
		_ = oldPeer.Close()
	}
}

// attachPeer stores the peer connection when the websocket is still active.
func (s *Server) attachPeer(conn *websocket.Conn, peer *webrtc.PeerConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		return fmt.Errorf("connection no longer active")
	}
	s.peer = peer
	return nil
}

// attachChannel publishes dc when its peer is still the active one.
func (s *Server) attachChannel(peer *webrtc.PeerConnection, dc *webrtc.DataChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer == peer {
		s.channel = dc
		s.logger.Info("event channel open")
	}
}

// detachChannel forgets dc if it is the current channel.
func (s *Server) detachChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == dc {
		s.channel = nil
	}
}

// cleanupConn clears state if the connection is still the active one. Peers
// are closed outside the lock since pion may call back into the server.
func (s *Server) cleanupConn(conn *websocket.Conn) {
	var peer *webrtc.PeerConnection
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.channel = nil
		peer, s.peer = s.peer, nil
	}
	s.mu.Unlock()
	if peer != nil {
		_ = peer.Close()
	}
	_ = conn.Close()
}

// handleMessage dispatches signaling messages.
func (s *Server) handleMessage(conn *websocket.Conn, peer *webrtc.PeerConnection, msg Message) error {
	switch msg.T {
	case "offer":
		return s.handleOffer(conn, peer, msg.SDP)
	case "ice":
		return s.handleICE(peer, msg.Candidate)
	default:
		return nil
	}
}

// handleOffer processes an SDP offer and replies with an answer.
func (s *Server) handleOffer(conn *websocket.Conn, peer *webrtc.PeerConnection, sdp string) error {
	if sdp == "" {
		return fmt.Errorf("empty offer")
	}
	if err := peer.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}); err != nil {
		return err
	}
	answer, err := peer.CreateAnswer(nil)
	if err != nil {
		return err
	}
	gatherComplete := webrtc.GatheringCompletePromise(peer)
	if err := peer.SetLocalDescription(answer); err != nil {
		return err
	}
	<-gatherComplete
	local := peer.LocalDescription()
	if local == nil {
		return fmt.Errorf("missing local description")
	}
	return s.sendTo(conn, Message{T: "answer", SDP: local.SDP})
}

// handleICE adds a remote ICE candidate.
func (s *Server) handleICE(peer *webrtc.PeerConnection, candidate *webrtc.ICECandidateInit) error {
	if candidate == nil {
		return nil
	}
	return peer.AddICECandidate(*candidate)
}

// sendTo writes a message to the active connection.
func (s *Server) sendTo(conn *websocket.Conn, msg Message) error {
	s.mu.Lock()
	active := s.conn
	s.mu.Unlock()
	if active != conn {
		return fmt.Errorf("connection not active")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// Send writes raw text to the open event channel.
func (s *Server) Send(data []byte) error {
	s.mu.Lock()
	dc := s.channel
	s.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNoViewer
	}
	if err := dc.SendText(string(data)); err != nil {
		return err
	}
	s.sent.Add(1)
	return nil
}

// Consume forwards a snapshot of ev to the viewer. Having no viewer is not
// an error.
func (s *Server) Consume(_ context.Context, ev *mouse.Event) error {
	snap := ev.Snapshot()
	if s.locate != nil {
		snap.Monitor = s.locate(ev.Pos.X, ev.Pos.Y)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.Send(data); err != nil {
		if errors.Is(err, ErrNoViewer) {
			s.skipped.Add(1)
			return nil
		}
		return err
	}
	return nil
}

// Stats returns the server counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	viewer := s.conn != nil
	s.mu.Unlock()
	return Stats{Viewer: viewer, Sent: s.sent.Load(), Skipped: s.skipped.Load()}
}

// Close drops the current viewer.
func (s *Server) Close() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		s.cleanupConn(conn)
	}
}
