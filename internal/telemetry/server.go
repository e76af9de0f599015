// Package telemetry runs a small non-RT control-plane websocket server
// that streams JSON snapshots of ring occupancy and consumer/monitor
// state to a local dashboard. It never touches the audio path itself;
// a producer or consumer calls Broadcast periodically (the cmd/dp-*
// binaries do so once a second) with figures read off the hot path.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Snapshot is one point-in-time view of a running producer or
// consumer, broadcast to every connected dashboard.
type Snapshot struct {
	Role             string  `json:"role"` // "producer" or "consumer"
	State            string  `json:"state"`
	RingOccupancy    uint32  `json:"ring_occupancy"`
	BufferPreset     string  `json:"buffer_preset,omitempty"`
	UnderrunCount    uint64  `json:"underrun_count,omitempty"`
	OverflowCount    uint64  `json:"overflow_count,omitempty"`
	MonitorStatus    string  `json:"monitor_status,omitempty"`
	SourceSampleRate uint32  `json:"source_sample_rate,omitempty"`
	RMS              float64 `json:"rms,omitempty"`
}

// Server fans a Snapshot stream out to every connected websocket
// client, mirroring the teacher's Client in structure but inverted:
// this process accepts connections instead of dialing out.
type Server struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

// NewServer constructs a telemetry server. log must not be nil.
func NewServer(log *zap.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[string]*websocket.Conn),
	}
}

// Handler upgrades incoming HTTP requests to websocket connections and
// registers them for broadcast until the peer disconnects.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("telemetry: upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()
	s.log.Info("telemetry: client connected", zap.String("session_id", id))

	go s.readUntilClosed(id, conn)
}

// readUntilClosed drains and discards inbound frames (this protocol is
// broadcast-only) purely to detect when the peer goes away.
func (s *Server) readUntilClosed(id string, conn *websocket.Conn) {
	defer s.disconnect(id, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) disconnect(id string, conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	conn.Close()
	s.log.Info("telemetry: client disconnected", zap.String("session_id", id))
}

// Broadcast sends snapshot as JSON to every connected client, pruning
// any connection that errors on write.
func (s *Server) Broadcast(snapshot Snapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.log.Warn("telemetry: marshal snapshot failed", zap.Error(err))
		return
	}

	s.mu.RLock()
	targets := make(map[string]*websocket.Conn, len(s.clients))
	for id, conn := range s.clients {
		targets[id] = conn
	}
	s.mu.RUnlock()

	for id, conn := range targets {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.disconnect(id, conn)
		}
	}
}

// ClientCount reports how many dashboards are currently connected.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
