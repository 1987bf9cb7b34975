package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

// ServerName is the backend name of the self-hosted document server.
const ServerName = "server"

// Server talks to a flowboard document server:
//
//	GET  {base}/api/health   2xx means reachable
//	GET  {base}/api/data     raw document
//	POST {base}/api/data     persist raw document
type Server struct {
	base string
	c    *client
}

// NewServer creates a server backend for baseURL, e.g. "http://localhost:8000".
func NewServer(baseURL string, opts Options) (*Server, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	return &Server{
		base: strings.TrimRight(u.String(), "/"),
		c:    newClient(ServerName, opts),
	}, nil
}

// Name implements backend.Backend.
func (s *Server) Name() string { return ServerName }

// URL returns the normalized base URL.
func (s *Server) URL() string { return s.base }

// Ping implements backend.Prober.
func (s *Server) Ping(ctx context.Context) error {
	_, err := s.c.do(ctx, "ping", http.MethodGet, s.base+"/api/health", nil, nil)
	return err
}

// Read implements backend.Backend.
func (s *Server) Read(ctx context.Context) (*schema.Document, error) {
	data, err := s.c.do(ctx, "read", http.MethodGet, s.base+"/api/data", nil, nil)
	if err != nil {
		return nil, err
	}
	return s.c.decode(data)
}

// Write implements backend.Backend.
func (s *Server) Write(ctx context.Context, doc *schema.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.c.do(ctx, "write", http.MethodPost, s.base+"/api/data", nil, body)
	return err
}
