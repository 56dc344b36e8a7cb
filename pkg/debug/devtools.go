package debug

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aretw0/keel/pkg/core"
)

// Frame is one devtools message: an action and the state it produced.
type Frame struct {
	Seq    uint64      `json:"seq"`
	Time   time.Time   `json:"time"`
	Action FrameAction `json:"action"`
	State  core.State  `json:"state"`
	Error  string      `json:"error,omitempty"`
}

// FrameAction is the serializable part of an action.
type FrameAction struct {
	Type    string         `json:"type"`
	Payload any            `json:"payload,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Devtools streams every dispatch to connected websocket clients.
type Devtools struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
	seq      atomic.Uint64
}

// NewDevtools creates a hub with no clients.
func NewDevtools(logger *slog.Logger) *Devtools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Devtools{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // debug server binds locally
			},
		},
	}
}

// Middleware publishes a frame after each action leaves the pipeline.
func (d *Devtools) Middleware() core.Middleware {
	return func(api core.MiddlewareAPI) func(core.DispatchFunc) core.DispatchFunc {
		return func(next core.DispatchFunc) core.DispatchFunc {
			return func(action core.Action) error {
				err := next(action)
				if d.ClientCount() == 0 {
					return err
				}
				frame := Frame{
					Seq:    d.seq.Add(1),
					Time:   time.Now(),
					Action: FrameAction{Type: action.Type, Payload: action.Payload, Meta: action.Meta},
					State:  api.GetState(),
				}
				if err != nil {
					frame.Error = err.Error()
				}
				d.broadcast(frame)
				return err
			}
		}
	}
}

// ServeHTTP upgrades the request and keeps the client until it disconnects.
func (d *Devtools) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	d.mu.Lock()
	d.clients[conn] = true
	d.mu.Unlock()
	d.logger.Debug("devtools client connected", "remote", r.RemoteAddr)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.remove(conn)
}

func (d *Devtools) remove(conn *websocket.Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clients[conn] {
		delete(d.clients, conn)
		conn.Close()
	}
}

func (d *Devtools) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		// Payloads such as thunks are not serializable.
		frame.Action.Payload = nil
		if data, err = json.Marshal(frame); err != nil {
			d.logger.Debug("devtools frame dropped", "action", frame.Action.Type, "error", err)
			return
		}
	}

	d.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(d.clients))
	for client := range d.clients {
		clients = append(clients, client)
	}
	d.mu.RUnlock()

	for _, client := range clients {
		_ = client.SetWriteDeadline(time.Now().Add(time.Second))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			d.remove(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (d *Devtools) ClientCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients)
}

// Close disconnects every client.
func (d *Devtools) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for client := range d.clients {
		client.Close()
		delete(d.clients, client)
	}
}
