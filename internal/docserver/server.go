package docserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// MaxBodyBytes bounds an uploaded document.
const MaxBodyBytes = 8 << 20

// Config holds server configuration
type Config struct {
	// Host to bind (default: 127.0.0.1)
	Host string

	// Port to listen on, 0 picks a free port (default: 3000)
	Port int

	// File is the JSON document file (default: project-data.json)
	File string

	// Watch enables reloading the file when it is edited externally.
	Watch bool

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:  "127.0.0.1",
		Port:  3000,
		File:  "project-data.json",
		Watch: true,
	}
}

// Server serves one document file.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	store    *Store
	watcher  *FileWatcher
	watch    bool

	// reloads counts external edits picked up by the watcher.
	reloads int
	mu      sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewServer opens the document file and prepares the server.
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[docserver] ", log.LstdFlags)
	}
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if config.File == "" {
		config.File = DefaultConfig().File
	}

	store, err := OpenStore(config.File, config.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		store:  store,
		watch:  config.Watch,
		ctx:    ctx,
		cancel: cancel,
		logger: config.Logger,
	}, nil
}

// Store returns the server's document store.
func (s *Server) Store() *Store {
	return s.store
}

// Routes returns the HTTP routes of the server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/data", s.handleGet)
	mux.HandleFunc("POST /api/data", s.handlePost)
	mux.HandleFunc("OPTIONS /api/", s.handlePreflight)
	return cors(mux)
}

// Start listens and, if enabled, starts the file watcher.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	if s.watch {
		fw, err := NewFileWatcher()
		if err != nil {
			ln.Close()
			return err
		}
		if err := fw.Start(s.store.Path()); err != nil {
			fw.Stop()
			ln.Close()
			return err
		}
		s.watcher = fw
		s.wg.Add(1)
		go s.watchLoop()
	}

	s.server = &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Document server listening on %s (file %s)", ln.Addr(), s.store.Path())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

func (s *Server) watchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case _, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			if s.store.Reload() {
				s.mu.Lock()
				s.reloads++
				s.mu.Unlock()
				s.logger.Printf("Reloaded %s after external edit", s.store.Path())
			}
		case err, ok := <-s.watcher.Errors():
			if !ok {
				return
			}
			s.logger.Printf("WARNING: Watcher error: %v", err)
		}
	}
}

// Reloads returns how many external edits have been picked up.
func (s *Server) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var shutdownErr error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	s.wg.Wait()
	return shutdownErr
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.store.Get())
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read body: %v", err), http.StatusRequestEntityTooLarge)
		return
	}
	if err := s.store.Put(body); err != nil {
		s.logger.Printf("WARNING: Rejected upload: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// cors lets a board page served from another origin reach the API.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}
