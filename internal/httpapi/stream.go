package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/turbofuel/fueltwin/pkg/core"
	"github.com/turbofuel/fueltwin/pkg/streaming"
)

const (
	streamBuffer = 64
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleStream pushes snapshot envelopes to a WebSocket client: the current
// snapshot on connect, then the latest published one at most once per
// stream interval.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.Logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger := s.deps.Logger.With("remote", r.RemoteAddr)
	logger.Info("Stream client connected")
	defer logger.Info("Stream client disconnected")

	updates, unsubscribe := s.deps.Runner.Subscribe(streamBuffer)
	defer unsubscribe()

	// Reader detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.sendSnapshot(conn, s.deps.Runner.Snapshot()); err != nil {
		return
	}

	var (
		pending core.SimulationState
		dirty   bool
		tick    <-chan time.Time
	)
	if s.deps.StreamInterval > 0 {
		t := time.NewTicker(s.deps.StreamInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if tick == nil {
				if err := s.sendSnapshot(conn, snap); err != nil {
					return
				}
				continue
			}
			pending, dirty = snap, true
		case <-tick:
			if !dirty {
				continue
			}
			if err := s.sendSnapshot(conn, pending); err != nil {
				return
			}
			dirty = false
		}
	}
}

func (s *Server) sendSnapshot(conn *websocket.Conn, snap core.SimulationState) error {
	data, err := streaming.Marshal(streaming.TypeSnapshot, snap)
	if err != nil {
		s.deps.Logger.Error("Failed to encode snapshot", "error", err)
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.deps.Logger.Debug("Stream write failed", "error", err)
		return err
	}
	return nil
}
