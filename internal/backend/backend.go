// Package backend defines the storage contract shared by the local cache,
// the self-hosted server and the cloud document stores.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Backend stores a single board document.
//
// Read returns the stored document, ErrNoData when nothing is stored yet, or a
// *TransportError describing why the backend could not be used. Write replaces
// the stored document wholesale; there is no partial update.
type Backend interface {
	// Name identifies the backend in logs and status output
	// ("local", "server", "jsonbin", "custom").
	Name() string

	Read(ctx context.Context) (*schema.Document, error)

	Write(ctx context.Context, doc *schema.Document) error
}

// Prober is implemented by backends that can be health-checked without
// reading the document.
type Prober interface {
	Ping(ctx context.Context) error
}

// Error kinds. Match them with errors.Is.
var (
	// ErrUnreachable covers network failures, timeouts, open circuit
	// breakers and non-2xx responses.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrMalformed means a response or stored value could not be parsed as
	// a JSON object.
	ErrMalformed = errors.New("malformed document")

	// ErrNoData means the backend answered but holds no document.
	ErrNoData = errors.New("no data")

	// ErrRejected means the backend refused a write.
	ErrRejected = errors.New("write rejected")
)

// TransportError records which operation on which backend failed.
type TransportError struct {
	Backend string
	Op      string // "read", "write", "ping"
	Kind    error  // one of the Err* kinds above
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Backend, e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errorf builds a *TransportError.
func Errorf(name, op string, kind error, format string, args ...any) error {
	return &TransportError{Backend: name, Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap builds a *TransportError around an existing cause.
func Wrap(name, op string, kind, err error) error {
	return &TransportError{Backend: name, Op: op, Kind: kind, Err: err}
}

// IsUnavailable reports whether err means the backend's data cannot be used
// this round: unreachable or malformed.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrMalformed)
}
