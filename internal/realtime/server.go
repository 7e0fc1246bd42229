// Package realtime serves sessions to browsers over WebSocket.
//
// Each connection is bound to one session. The first message is a full
// render; later runs are sent as point-of-difference deltas against what
// the connection last received.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/protocol"
	"github.com/roach88/jeamlit/internal/render"
	"github.com/roach88/jeamlit/internal/session"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	sendBuffer    = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStaticDir serves the browser client from dir at "/".
func WithStaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

// Server routes WebSocket messages between clients and the session
// manager.
type Server struct {
	manager   *session.Manager
	logger    *slog.Logger
	staticDir string

	clientsMu sync.RWMutex
	clients   map[*client]bool
}

type client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	server    *Server

	// mu guards what the client is known to display.
	mu     sync.Mutex
	last   render.Output
	seq    int64
	synced bool
}

// New creates a realtime server over manager.
func New(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		logger:  slog.Default(),
		clients: make(map[*client]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint. ?session=<id> resumes a live session.
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API endpoints.
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)

	// Static file serving.
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades an HTTP connection to WebSocket and attaches it
// to a session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	// Cancelled when the connection goes away, so queued events of a
	// departed client are skipped.
	ctx, cancel := context.WithCancel(context.Background())

	id, res, err := s.manager.GetOrCreate(ctx, r.URL.Query().Get("session"))
	if err != nil && engine.CodeOf(err) == "" {
		code := protocol.ErrInternal
		if errors.Is(err, session.ErrTooManySessions) {
			code = protocol.ErrMaxSessions
		}
		s.reject(conn, code, err.Error())
		cancel()
		return
	}

	c := &client{
		sessionID: id,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		server:    s,
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	s.logger.Info("client connected", "session_id", id, "remote", r.RemoteAddr)

	c.push(protocol.TypeSession, protocol.SessionPayload{SessionID: id})
	c.deliver(res, err)

	go c.writePump()
	go c.readPump(ctx, cancel)
}

// reject tells a client why it cannot be served and closes the connection.
func (s *Server) reject(conn *websocket.Conn, code, message string) {
	defer conn.Close()

	msg, err := protocol.NewErrorMessage(code, message)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(msg); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code))
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read error", "session_id", c.sessionID, "error", err)
			}
			return
		}

		c.server.handleMessage(ctx, c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient cleans up a disconnected client. The session stays live
// until it is closed or evicted, so the client may reconnect to it.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	close(c.send)
	s.logger.Info("client disconnected", "session_id", c.sessionID)
}

// handleMessage processes a validated client message. Runs are awaited
// here, so a connection's events apply in the order they were sent.
func (s *Server) handleMessage(ctx context.Context, c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		c.pushError(protocol.ErrInvalidMessage, err.Error(), "", 0)
		return
	}

	var (
		res    engine.Result
		runErr error
	)
	switch msg.Type {
	case protocol.TypeComponentUpdate:
		var p protocol.ComponentUpdatePayload
		if err := msg.Decode(&p); err != nil {
			c.pushError(protocol.ErrInvalidMessage, err.Error(), "", 0)
			return
		}
		res, runErr = s.manager.HandleEvent(ctx, c.sessionID, p.ComponentKey, p.Value)

	case protocol.TypeReload:
		res, runErr = s.manager.Rerun(ctx, c.sessionID)
	}

	c.deliver(res, runErr)
}

// Reload reruns every live session, after the script changed, and pushes
// the new output to the connected clients.
func (s *Server) Reload(ctx context.Context) {
	updates := s.manager.RerunAll(ctx)

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, u := range updates {
		for c := range s.clients {
			if c.sessionID == u.SessionID {
				c.deliver(u.Result, u.Err)
			}
		}
	}
	s.logger.Info("sessions reloaded", "sessions", len(updates), "clients", len(s.clients))
}

// CompilationError tells every client the script failed to compile.
// Sessions keep running the previous script.
func (s *Server) CompilationError(err error) {
	msg, merr := protocol.NewMessage(protocol.TypeCompilationError, protocol.CompilationErrorPayload{
		Error: err.Error(),
	})
	if merr != nil {
		return
	}
	s.broadcast(msg)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// broadcast sends a message to all connected clients.
func (s *Server) broadcast(msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, skip.
		}
	}
}

// deliver sends the outcome of a request: the output as a full render or
// a delta, then the run error if there was one.
func (c *client) deliver(res engine.Result, err error) {
	if err != nil && engine.CodeOf(err) == "" {
		code := protocol.ErrInternal
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionClosed) {
			code = protocol.ErrSessionNotFound
		}
		c.pushError(code, err.Error(), "", 0)
		return
	}

	c.mu.Lock()
	switch {
	case !c.synced:
		if c.push(protocol.TypeRender, protocol.RenderPayload{
			SessionID: c.sessionID, Seq: res.Seq, Output: res.Output,
		}) {
			c.last, c.seq, c.synced = res.Output, res.Seq, true
		}

	case res.Seq < c.seq:
		// Stale: a later run was already delivered.

	default:
		d := render.Diff(c.last, res.Output)
		if d.Empty() {
			c.seq = res.Seq
			break
		}
		if c.push(protocol.TypeDelta, protocol.DeltaPayload{
			SessionID: c.sessionID, Seq: res.Seq, Delta: d,
		}) {
			c.last, c.seq = res.Output, res.Seq
		} else {
			// A dropped delta leaves the client out of step; resend
			// everything next time.
			c.synced = false
		}
	}
	c.mu.Unlock()

	var re *engine.RunError
	if errors.As(err, &re) {
		c.pushError(string(re.Code), re.Message, re.Key, re.Seq)
	}
}

func (c *client) pushError(code, message, key string, seq int64) {
	c.push(protocol.TypeError, protocol.ErrorPayload{
		Code:    code,
		Message: message,
		Key:     key,
		Seq:     seq,
	})
}

// push queues a message without blocking. It reports whether the message
// was queued.
func (c *client) push(msgType string, payload any) bool {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		c.server.logger.Error("encode message", "type", msgType, "error", err)
		return false
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.server.logger.Warn("client send buffer full", "session_id", c.sessionID, "type", msgType)
		return false
	}
}
