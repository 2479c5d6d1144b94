package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okorolev/tolmach/internal/pipeline"
	"github.com/okorolev/tolmach/pkg/logger"
)

// Message is the envelope broadcast to connected clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	clientBufferSz = 32
)

// Server fans pipeline items out to WebSocket clients, e.g. a browser UI
// showing the live transcript. Delivery to clients is best effort: a client
// that cannot keep up has messages dropped rather than stalling the
// translation stage.
type Server struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// NewServer creates a new WebSocket broadcast server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log.Named("websocket"),
		clients: make(map[*client]struct{}),
	}
}

// HandleWS upgrades the connection and registers the client. Once the hub is
// closed, registration is refused so no client outlives shutdown.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Message, clientBufferSz),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("WebSocket client connected",
		logger.String("remote_addr", r.RemoteAddr),
		logger.Int("clients", count))

	go s.writeLoop(c)
	go s.readLoop(c)
}

// Broadcast queues a message for every connected client. Non-blocking: full
// client buffers are skipped.
func (s *Server) Broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			// client is not keeping up, skip it for this message
		}
	}
}

// Deliver implements pipeline.Sink by broadcasting each completed item
func (s *Server) Deliver(item pipeline.Item) {
	s.Broadcast(Message{Type: "pipeline_item", Data: item})
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects all clients and refuses further registrations
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			s.logger.Debug("WebSocket write failed, dropping client", logger.Error(err))
			s.remove(c)
			return
		}
	}
}

// readLoop discards inbound frames; the protocol is one-way. It exists to
// notice client disconnects promptly.
func (s *Server) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.remove(c)
			return
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, present := s.clients[c]
	if present {
		delete(s.clients, c)
	}
	count := len(s.clients)
	s.mu.Unlock()

	if present {
		close(c.send)
		s.logger.Info("WebSocket client disconnected", logger.Int("clients", count))
	}
}

var _ pipeline.Sink = (*Server)(nil)
