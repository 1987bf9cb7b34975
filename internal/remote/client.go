// Package remote implements the network backends: the self-hosted document
// server and the two cloud document store variants.
//
// Every request goes through a per-backend circuit breaker. A tripped breaker
// fails fast with backend.ErrUnreachable, exactly like a dead server would.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 16 << 20

// Options tune the HTTP transport shared by all remote backends.
type Options struct {
	// HTTPClient overrides the client. Its timeout is left as is.
	HTTPClient *http.Client

	// Timeout applies to the default client.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Zero means 3.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before a trial request.
	// Zero means 30s.
	OpenTimeout time.Duration

	Logger *log.Logger
}

// client performs JSON requests for one named backend.
type client struct {
	name   string
	http   *http.Client
	cb     *gobreaker.CircuitBreaker
	logger *log.Logger
}

func newClient(name string, opts Options) *client {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	openTimeout := opts.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("Circuit breaker %q changed from %s to %s", name, from, to)
		},
	})

	return &client{name: name, http: hc, cb: cb, logger: logger}
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}

// do sends a request and returns the response body. Transport failures,
// non-2xx responses and an open breaker all classify as
// backend.ErrUnreachable for reads. For writes a non-2xx response classifies
// as backend.ErrRejected.
func (c *client) do(ctx context.Context, op, method, url string, header http.Header, body []byte) ([]byte, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &statusError{code: resp.StatusCode}
		}
		return data, nil
	})
	if err != nil {
		kind := backend.ErrUnreachable
		var se *statusError
		if op == "write" && errors.As(err, &se) {
			kind = backend.ErrRejected
		}
		return nil, backend.Wrap(c.name, op, kind, err)
	}
	return out.([]byte), nil
}

// decode parses a response body as a board document.
func (c *client) decode(data []byte) (*schema.Document, error) {
	doc, err := schema.Decode(data)
	if err != nil {
		return nil, backend.Wrap(c.name, "read", backend.ErrMalformed, err)
	}
	return doc, nil
}

// encode marshals doc compactly for the wire.
func encode(doc *schema.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}
