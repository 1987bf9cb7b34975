package sync

import (
	"context"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/migrate"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Reconciler selects the board a session starts from.
//
// The reconciler consults the local cache and at most one remote-class
// backend. It never fails on a bad source: unreachable or corrupt sources are
// logged and skipped, and the compiled-in sample is the last resort.
type Reconciler interface {
	// Reconcile applies the startup policy and returns the adopted board.
	//
	// Depending on the rule applied, it may overwrite the local cache with
	// the remote board, push the local board to the remote once, or persist
	// a migrated legacy board.
	//
	// Example:
	//   out, err := r.Reconcile(ctx)
	//   fmt.Println(out.Rule, out.Document.Project.Name)
	Reconcile(ctx context.Context) (*Outcome, error)

	// Restore loads a board from an explicit source for manual recovery.
	// Nothing is written; the caller replaces its board and saves.
	//
	// Example:
	//   doc, err := r.Restore(ctx, sync.SourceV2)
	Restore(ctx context.Context, source Source) (*schema.Document, error)

	// Inspect summarises every source without changing anything.
	Inspect(ctx context.Context) []SourceInfo
}

// Local is what the reconciler needs from the local cache: the current board
// plus read access to the legacy generations.
type Local interface {
	backend.Backend
	migrate.LegacySource
}

// Source names a place a board can be recovered from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceV2     Source = "v2"
	SourceV1     Source = "v1"
	SourceRemote Source = "remote"
	SourceSample Source = "sample"
)

// ParseSource validates a user-supplied source name.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceLocal, SourceV2, SourceV1, SourceRemote:
		return Source(s), true
	}
	return "", false
}

// Outcome reports what Reconcile did.
type Outcome struct {
	Document *schema.Document
	Rule     Rule
	Source   Source

	// Remote is the remote-class backend the save pipeline should target,
	// or nil when none is active. A server that failed its health check is
	// not active; a configured cloud always is.
	Remote backend.Backend

	// RemoteReachable is true when the remote answered with a parseable
	// board.
	RemoteReachable bool

	// Pushed is true when the local board was pushed to the remote.
	// PushErr holds the push failure, if any.
	Pushed  bool
	PushErr error

	// MigratedFrom is set when the board came from a legacy generation.
	MigratedFrom migrate.Version
}

// SourceInfo describes one source for recovery listings.
type SourceInfo struct {
	Source  Source `json:"source"`
	State   string `json:"state"`
	Backend string `json:"backend,omitempty"`
	Project string `json:"project,omitempty"`
	Modules int    `json:"modules"`
	Tasks   int    `json:"tasks"`
	Detail  string `json:"detail,omitempty"`
}

// Source states reported by Inspect.
const (
	StateOK            = "ok"
	StateNoData        = "no data"
	StateCorrupt       = "corrupt"
	StateUnreachable   = "unreachable"
	StateNotConfigured = "not configured"
)
