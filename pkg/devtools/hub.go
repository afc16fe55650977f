package devtools

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsEvent is one entry on the live stream.
type wsEvent struct {
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
	Value any    `json:"value,omitempty"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`

	Rounds       int   `json:"rounds,omitempty"`
	Computations int   `json:"computations,omitempty"`
	DurationUS   int64 `json:"duration_us,omitempty"`

	Time time.Time `json:"time"`
}

// hub fans engine notifications out to connected WebSocket clients. It
// implements state.Observer; events are dropped, never blocked on, when a
// client cannot keep up.
type hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

const clientSendBuffer = 256

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *hub) add(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast queues an event for every client. Slow clients lose events
// rather than stalling the engine.
func (h *hub) broadcast(ev wsEvent) {
	ev.Time = time.Now()
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("event marshal error", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// writeLoop drains a client's queue onto its connection.
func (h *hub) writeLoop(c *wsClient, writeTimeout time.Duration) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
}

// readLoop consumes client frames until the connection drops. Inbound
// payloads are ignored; the stream is one-way.
func (h *hub) readLoop(c *wsClient, readTimeout time.Duration) {
	defer h.remove(c)

	for {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "error", err)
			}
			return
		}
	}
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Engine observer hooks.

func (h *hub) MutationCommitted(path string, value any) {
	h.broadcast(wsEvent{Kind: "mutation", Path: path, Value: value})
}

func (h *hub) MutationVetoed(path string) {
	h.broadcast(wsEvent{Kind: "veto", Path: path})
}

func (h *hub) FlushStart() {}

func (h *hub) FlushEnd(rounds, computations int, d time.Duration) {
	h.broadcast(wsEvent{
		Kind:         "flush",
		Rounds:       rounds,
		Computations: computations,
		DurationUS:   d.Microseconds(),
	})
}

func (h *hub) ComputationRan(name string, d time.Duration) {
	h.broadcast(wsEvent{Kind: "computation", Name: name, DurationUS: d.Microseconds()})
}

func (h *hub) ComputationFailed(name string, err error) {
	h.broadcast(wsEvent{Kind: "computation_error", Name: name, Error: err.Error()})
}

func (h *hub) BatchDiverged(rounds int) {
	h.broadcast(wsEvent{Kind: "divergence", Rounds: rounds})
}
