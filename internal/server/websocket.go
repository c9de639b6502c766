package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/blockwright/internal/logging"
	"github.com/conneroisu/blockwright/internal/session"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// connectedMessage is the first message a WebSocket client receives.
type connectedMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

type client struct {
	send chan []byte
	done chan struct{}
}

// hub fans the events of one session out to its WebSocket clients.
type hub struct {
	logger logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub(logger logging.Logger) *hub {
	if logger == nil {
		logger = logging.Discard()
	}

	return &hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// add registers c. It fails once the hub is closed.
func (h *hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}

	return true
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c)
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// publish is the session observer. It never blocks: a client whose buffer
// is full misses the message.
func (h *hub) publish(e session.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error(context.Background(), err, "failed to encode session event")
		return
	}

	h.broadcast(data)
}

func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn(context.Background(), nil, "dropping event for slow client")
		}
	}
}

// close disconnects every client and rejects new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.done)
	}
	h.clients = make(map[*client]struct{})
}

// handleWebSocket streams session events to one client until either side
// goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, e *entry) {
	if !s.checkOrigin(r) {
		s.logger.Warn(r.Context(), nil, "rejected websocket origin",
			"origin", r.Header.Get("Origin"))
		writeErrorMessage(w, http.StatusForbidden, "origin not allowed")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedHosts(),
	})
	if err != nil {
		s.logger.Error(r.Context(), err, "websocket accept failed")
		return
	}

	c := &client{
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	if !e.hub.add(c) {
		conn.Close(websocket.StatusGoingAway, "session closed")
		return
	}
	defer e.hub.remove(c)

	ctx := conn.CloseRead(r.Context())

	hello, _ := json.Marshal(connectedMessage{Type: "connected", Session: e.id})
	if err := write(ctx, conn, hello); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-c.done:
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		case msg := <-c.send:
			if err := write(ctx, conn, msg); err != nil {
				s.logger.Debug(ctx, "websocket write failed", "error", err.Error())
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, msg)
}
