// Package board holds the single in-memory board of a session and funnels
// every mutation into one save.
//
// A save always writes the local cache first. It then pushes to the cloud if
// one is configured, otherwise to the document server if it passed its health
// check at load. A failed push never rolls back the mutation; it only flips
// the connection status to one of the *-sync-failed values until the next
// successful save.
package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/remote"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Status is the connection indicator shown to the user.
type Status string

const (
	StatusLocal        Status = "local"
	StatusServer       Status = "server"
	StatusCloud        Status = "cloud"
	StatusServerFailed Status = "server-sync-failed"
	StatusCloudFailed  Status = "cloud-sync-failed"
)

// Failed reports whether the last push failed.
func (s Status) Failed() bool {
	return s == StatusServerFailed || s == StatusCloudFailed
}

// SaveResult reports both halves of a save.
type SaveResult struct {
	LocalErr error `json:"-"`

	// Remote is the name of the backend pushed to, empty when standalone.
	Remote    string `json:"remote,omitempty"`
	RemoteErr error  `json:"-"`

	Status Status `json:"status"`
}

// Err joins the local and remote failures, or returns nil.
func (r SaveResult) Err() error {
	return errors.Join(r.LocalErr, r.RemoteErr)
}

// Event is delivered to subscribers after every save, successful or not,
// and after a reload picks up a board saved by another process.
type Event struct {
	Document *schema.Document
	Result   SaveResult

	// Reloaded is set when the document came from the local cache rather
	// than from a save of this board.
	Reloaded bool
}

// Board owns the session's document.
//
// All mutations are serialized: a mutation is applied to a copy, swapped in
// on success and saved before the next mutation may start. A save therefore
// never observes a half-applied change and saves never overlap.
type Board struct {
	mu     sync.Mutex
	doc    *schema.Document
	local  backend.Backend
	remote backend.Backend
	status Status

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int

	logger *log.Logger

	// NewID generates entity ids. Defaults to random UUIDs.
	NewID func() string
}

// New creates a Board around doc.
//
// remote is the active remote-class backend, or nil for a standalone
// session. If logger is nil, a default logger writing to stderr is used.
func New(doc *schema.Document, local, remoteBackend backend.Backend, logger *log.Logger) *Board {
	if logger == nil {
		logger = log.New(os.Stderr, "[board] ", log.LstdFlags)
	}
	b := &Board{
		doc:    doc,
		local:  local,
		remote: remoteBackend,
		subs:   make(map[int]chan Event),
		logger: logger,
		NewID:  uuid.NewString,
	}
	b.status = b.okStatus()
	return b
}

func (b *Board) isCloud() bool {
	return b.remote != nil && b.remote.Name() != remote.ServerName
}

func (b *Board) okStatus() Status {
	switch {
	case b.remote == nil:
		return StatusLocal
	case b.isCloud():
		return StatusCloud
	default:
		return StatusServer
	}
}

func (b *Board) failedStatus() Status {
	if b.isCloud() {
		return StatusCloudFailed
	}
	return StatusServerFailed
}

// MarkFailed flips the connection status to the failed value of the active
// remote. Used when a push made while loading did not reach the remote.
// It has no effect on a standalone board.
func (b *Board) MarkFailed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remote != nil {
		b.status = b.failedStatus()
	}
}

// Snapshot returns a deep copy of the current document.
func (b *Board) Snapshot() *schema.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Clone()
}

// Status returns the connection indicator.
func (b *Board) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// RemoteName returns the active remote backend name, or "" when standalone.
func (b *Board) RemoteName() string {
	if b.remote == nil {
		return ""
	}
	return b.remote.Name()
}

// Mutate applies fn to a copy of the document. When fn succeeds the copy
// becomes current and is saved; when it fails nothing changes and nothing is
// saved.
//
// The returned error is fn's error only. Save failures are reported in the
// SaveResult; the mutation stands either way.
func (b *Board) Mutate(ctx context.Context, fn func(doc *schema.Document) error) (SaveResult, error) {
	b.mu.Lock()
	next := b.doc.Clone()
	if err := fn(next); err != nil {
		st := b.status
		b.mu.Unlock()
		return SaveResult{Status: st}, err
	}
	b.doc = next
	res := b.saveLocked(ctx)
	snap := b.doc.Clone()
	b.mu.Unlock()

	b.notify(Event{Document: snap, Result: res})
	return res, nil
}

// Replace swaps in doc wholesale and saves it. Used by recovery.
func (b *Board) Replace(ctx context.Context, doc *schema.Document) (SaveResult, error) {
	if doc == nil {
		return SaveResult{}, fmt.Errorf("cannot replace board with nil document")
	}
	return b.Mutate(ctx, func(d *schema.Document) error {
		*d = *doc.Clone()
		return nil
	})
}

// Save persists the current document without changing it. This is the
// user-triggered retry after a failed push.
func (b *Board) Save(ctx context.Context) SaveResult {
	b.mu.Lock()
	res := b.saveLocked(ctx)
	snap := b.doc.Clone()
	b.mu.Unlock()

	b.notify(Event{Document: snap, Result: res})
	return res
}

// Reload re-reads the local cache and adopts its board when it differs from
// the current one, e.g. after another fb process saved. It reports whether
// the document changed. Nothing is saved; subscribers get a Reloaded event.
//
// An empty or unreadable cache leaves the board untouched.
func (b *Board) Reload(ctx context.Context) (bool, error) {
	b.mu.Lock()
	doc, err := b.local.Read(ctx)
	if err != nil {
		b.mu.Unlock()
		if errors.Is(err, backend.ErrNoData) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reload board: %w", err)
	}
	same, err := sameContent(b.doc, doc)
	if err != nil || same {
		b.mu.Unlock()
		return false, err
	}
	b.doc = doc
	snap := b.doc.Clone()
	res := SaveResult{Remote: b.RemoteName(), Status: b.status}
	b.mu.Unlock()

	b.notify(Event{Document: snap, Result: res, Reloaded: true})
	return true, nil
}

// sameContent compares two documents by their JSON form.
func sameContent(a, b *schema.Document) (bool, error) {
	ea, err := a.Encode()
	if err != nil {
		return false, err
	}
	eb, err := b.Encode()
	if err != nil {
		return false, err
	}
	return bytes.Equal(ea, eb), nil
}

// saveLocked writes local first, then the active remote. Caller holds b.mu.
func (b *Board) saveLocked(ctx context.Context) SaveResult {
	res := SaveResult{}

	if err := b.local.Write(ctx, b.doc); err != nil {
		res.LocalErr = fmt.Errorf("failed to save locally: %w", err)
		b.logger.Printf("WARNING: %v", res.LocalErr)
	}

	if b.remote == nil {
		b.status = StatusLocal
		res.Status = b.status
		return res
	}

	res.Remote = b.remote.Name()
	if err := b.remote.Write(ctx, b.doc); err != nil {
		res.RemoteErr = fmt.Errorf("failed to sync to %s: %w", b.remote.Name(), err)
		b.logger.Printf("WARNING: %v (changes kept locally)", res.RemoteErr)
		b.status = b.failedStatus()
	} else {
		b.status = b.okStatus()
	}
	res.Status = b.status
	return res
}

// Subscribe registers for save events. The returned function unsubscribes.
// Events are dropped for a subscriber whose buffer is full.
func (b *Board) Subscribe() (<-chan Event, func()) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	return ch, func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *Board) notify(ev Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Printf("WARNING: Subscriber %d is slow, dropping event", id)
		}
	}
}
