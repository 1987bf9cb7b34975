// Package dashboard serves a live view of a board over HTTP and WebSocket.
//
// Every save of the board is broadcast to connected WebSocket clients as a
// document_changed message followed by a save_status message, so a browser
// can redraw the kanban and timeline and show the connection indicator.
// Saves come from the POST routes, which go through the board's normal save
// path, or from other fb processes, picked up by polling the local cache.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/mschirtzinger/flowboard/internal/board"
	"github.com/mschirtzinger/flowboard/internal/risk"
	"github.com/mschirtzinger/flowboard/internal/schema"
	"github.com/mschirtzinger/flowboard/internal/view"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeDocument carries the full board with risk results.
	MessageTypeDocument MessageType = "document_changed"

	// MessageTypeSaveStatus carries the outcome of a save.
	MessageTypeSaveStatus MessageType = "save_status"

	// MessageTypeConfigReloaded indicates the config file changed on disk.
	MessageTypeConfigReloaded MessageType = "config_reloaded"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// BoardData is the payload of document_changed and of GET /api/board.
type BoardData struct {
	view.Board
	Status board.Status `json:"status"`
	Remote string       `json:"remote,omitempty"`
}

// SaveStatusData is the payload of save_status.
type SaveStatusData struct {
	Status board.Status `json:"status"`
	Remote string       `json:"remote,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	board   *board.Board
	handler *Handler

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex

	broadcast chan Message
	joins     chan *websocket.Conn

	reloadEvery time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Host to bind (default: 127.0.0.1)
	Host string

	// Port to listen on, 0 picks a free port (default: 8090)
	Port int

	// Now is the clock for risk evaluation (default: time.Now)
	Now func() time.Time

	// ReloadInterval is how often the local cache is checked for boards
	// saved by other processes. Negative disables it (default: 2s)
	ReloadInterval time.Duration

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultReloadInterval is the cache polling period when none is configured.
const DefaultReloadInterval = 2 * time.Second

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           8090,
		ReloadInterval: DefaultReloadInterval,
		Logger:         log.Default(),
	}
}

// NewServer creates a dashboard server for b.
func NewServer(b *board.Board, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.ReloadInterval == 0 {
		config.ReloadInterval = DefaultReloadInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:      net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		board:     b,
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan Message, 100),
		joins:     make(chan *websocket.Conn, 16),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,

		reloadEvery: config.ReloadInterval,
	}
	s.handler = NewHandler(s, b, config.Now, config.Logger)
	return s
}

// Handler returns the event handler feeding this server.
func (s *Server) Handler() *Handler {
	return s.handler
}

// Routes returns the HTTP routes of the dashboard.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("GET /api/timeline", s.handleTimeline)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggleTask)
	mux.HandleFunc("POST /api/tasks/{id}/dates", s.handleTaskDates)
	mux.HandleFunc("POST /api/modules/{id}/dates", s.handleModuleDates)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start begins the HTTP server, the broadcast loop and the board subscription.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	events, unsubscribe := s.board.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		s.handler.Run(s.ctx, events)
	}()

	if s.reloadEvery > 0 {
		s.wg.Add(1)
		go s.reloadLoop()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	for _, conn := range s.snapshotClients() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "dashboard stopping")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	// Connections accepted but never welcomed.
	for drained := false; !drained; {
		select {
		case conn := <-s.joins:
			_ = conn.Close(websocket.StatusGoingAway, "dashboard stopping")
		default:
			drained = true
		}
	}

	s.logger.Println("Dashboard server stopped")
	return nil
}

// writeTimeout bounds a single websocket write.
const writeTimeout = 5 * time.Second

// Broadcast queues msg for every connected client. It never blocks; a full
// queue drops the message.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Printf("WARNING: Broadcast queue full, dropping %s", msg.Type)
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		var msg Message
		select {
		case <-s.ctx.Done():
			return
		case conn := <-s.joins:
			s.welcome(conn)
			continue
		case msg = <-s.broadcast:
		}

		for _, conn := range s.snapshotClients() {
			if err := s.send(s.ctx, conn, msg); err != nil {
				s.logger.Printf("Dropping client after failed %s: %v", msg.Type, err)
				s.removeClient(conn)
			}
		}
	}
}

// welcome sends the current board to conn and registers it. It runs on the
// broadcast loop: every save after the snapshot is broadcast after conn is
// registered, and every save before it is in the snapshot.
func (s *Server) welcome(conn *websocket.Conn) {
	msg, err := s.handler.DocumentMessage(s.board.Snapshot(), s.board.Status())
	if err == nil {
		err = s.send(s.ctx, conn, msg)
	}
	if err != nil {
		s.logger.Printf("Failed to send initial board: %v", err)
		_ = conn.Close(websocket.StatusInternalError, "initial board")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("Client connected (total: %d)", n)
}

// reloadLoop adopts boards saved to the local cache by other processes.
func (s *Server) reloadLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reloadEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.board.Reload(s.ctx)
			if err != nil {
				s.logger.Printf("WARNING: %v", err)
			} else if changed {
				s.logger.Println("Board changed on disk, reloaded")
			}
		}
	}
}

// snapshotClients copies the client set so writes happen without the lock.
func (s *Server) snapshotClients() []*websocket.Conn {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	return conns
}

// send writes one message to conn, stamping it if needed.
func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", msg.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// handleWebSocket upgrades the connection and hands it to the broadcast loop,
// which sends the current board as the first message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	select {
	case s.joins <- conn:
	case <-s.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "dashboard stopping")
		return
	}

	go s.readLoop(conn)
}

// readLoop keeps the connection alive until the client goes away. Client
// messages are ignored.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	n := len(s.clients)
	s.clientsMu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", n)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":     "ok",
		"clients":    s.ClientCount(),
		"connection": s.board.Status(),
	})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.handler.BoardData(s.board.Snapshot(), s.board.Status()))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	v := view.NewBoard(s.board.Snapshot(), risk.Today(s.handler.now()))
	rows := view.Timeline(v)
	if rows == nil {
		rows = []view.Row{}
	}
	writeJSON(w, rows)
}

// MutationResult is the response of the POST routes.
type MutationResult struct {
	// TaskStatus is the task's new status after a toggle.
	TaskStatus string         `json:"taskStatus,omitempty"`
	Save       SaveStatusData `json:"save"`
}

// DatesRequest is the body of the dates routes.
type DatesRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	status, res, err := s.board.ToggleTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, MutationResult{TaskStatus: status, Save: saveStatus(res)})
}

func (s *Server) handleTaskDates(w http.ResponseWriter, r *http.Request) {
	var req DatesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.board.SetTaskDates(r.Context(), r.PathValue("id"), req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, MutationResult{Save: saveStatus(res)})
}

func (s *Server) handleModuleDates(w http.ResponseWriter, r *http.Request) {
	var req DatesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.board.SetModuleDates(r.Context(), r.PathValue("id"), req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, MutationResult{Save: saveStatus(res)})
}

func saveStatus(res board.SaveResult) SaveStatusData {
	data := SaveStatusData{Status: res.Status, Remote: res.Remote}
	if err := res.Err(); err != nil {
		data.Error = err.Error()
	}
	return data
}

// maxBodyBytes bounds a POST body.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps a rejected mutation to 404 or 400.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	if errors.Is(err, schema.ErrNotFound) {
		code = http.StatusNotFound
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>flowboard</title>
</head>
<body>
    <h1>flowboard dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Board: <a href="/api/board">/api/board</a></p>
    <p>Timeline: <a href="/api/timeline">/api/timeline</a></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Toggle a task: <code>POST /api/tasks/{id}/toggle</code></p>
    <p>Move a task or module: <code>POST /api/tasks/{id}/dates</code>, <code>POST /api/modules/{id}/dates</code></p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
