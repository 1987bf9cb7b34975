package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/migrate"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// reconciler implements the Reconciler interface.
type reconciler struct {
	local  Local
	remote backend.Backend
	logger *log.Logger
}

// New creates a Reconciler.
//
// remote is the single remote-class backend selected by configuration: the
// cloud store when one is configured, otherwise the document server, or nil
// for a standalone session. Cloud and server are never consulted together.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	local, err := cache.Open(".flowboard/cache.db")
//	if err != nil {
//	    return err
//	}
//	r := sync.New(local, srv, nil)
//	out, err := r.Reconcile(ctx)
func New(local Local, remote backend.Backend, logger *log.Logger) Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &reconciler{local: local, remote: remote, logger: logger}
}

// Reconcile implements Reconciler.Reconcile.
func (r *reconciler) Reconcile(ctx context.Context) (*Outcome, error) {
	out := &Outcome{}

	remoteDoc, active, reachable := r.fetchRemote(ctx)
	out.Remote = active
	out.RemoteReachable = reachable

	localDoc := r.readLocal(ctx)

	facts := Facts{
		RemoteReachable: reachable,
		RemoteReal:      reachable && schema.IsReal(remoteDoc),
		LocalReal:       schema.IsReal(localDoc),
		LocalCurrent:    localDoc != nil && !schema.IsUntouchedSample(localDoc),
	}
	out.Rule = Decide(facts)

	switch out.Rule {
	case RuleAdoptRemote:
		out.Document = migrate.NormalizeV3(remoteDoc)
		out.Source = SourceRemote
		if err := r.local.Write(ctx, out.Document); err != nil {
			r.logger.Printf("WARNING: Failed to cache remote board locally: %v", err)
		}
		r.logger.Printf("Loaded board from %s: %s (%d tasks)", active.Name(), out.Document.Project.Name, len(out.Document.Tasks))

	case RulePushLocal:
		out.Document = migrate.NormalizeV3(localDoc)
		out.Source = SourceLocal
		r.logger.Printf("Remote %s holds no real board, pushing local board (%d tasks)", active.Name(), len(out.Document.Tasks))
		out.Pushed = true
		out.PushErr = active.Write(ctx, out.Document)
		if out.PushErr != nil {
			r.logger.Printf("WARNING: Failed to push local board to %s: %v", active.Name(), out.PushErr)
		}

	case RuleLocalCache:
		out.Document = migrate.NormalizeV3(localDoc)
		out.Source = SourceLocal
		r.logger.Printf("Loaded board from local cache: %s (%d tasks)", out.Document.Project.Name, len(out.Document.Tasks))

	case RuleMigrate:
		res, err := migrate.FromLegacy(ctx, r.local, r.logger)
		if err == nil {
			out.Document = res.Document
			out.MigratedFrom = res.From
			out.Source = Source(res.From.String())
			r.persistMigrated(ctx, out)
			break
		}
		if !errors.Is(err, migrate.ErrNoLegacyData) {
			r.logger.Printf("WARNING: Migration failed: %v", err)
		}

		out.Rule = RuleSample
		if localDoc != nil {
			// The cache already holds the untouched sample.
			out.Document = migrate.NormalizeV3(localDoc)
			out.Source = SourceLocal
		} else {
			out.Document = schema.Sample()
			out.Source = SourceSample
		}
		r.logger.Printf("Starting from the sample board")
	}

	return out, nil
}

// persistMigrated stores a migrated board and shares it with the active
// remote, as any other save would.
func (r *reconciler) persistMigrated(ctx context.Context, out *Outcome) {
	if err := r.local.Write(ctx, out.Document); err != nil {
		r.logger.Printf("WARNING: Failed to store migrated board: %v", err)
	}
	if out.Remote == nil {
		return
	}
	out.Pushed = true
	out.PushErr = out.Remote.Write(ctx, out.Document)
	if out.PushErr != nil {
		r.logger.Printf("WARNING: Failed to push migrated board to %s: %v", out.Remote.Name(), out.PushErr)
	}
}

// fetchRemote reads the remote board. active is the backend saves should
// target; reachable is true only when the remote answered with a parseable
// board or explicitly reported that it holds none.
func (r *reconciler) fetchRemote(ctx context.Context) (doc *schema.Document, active backend.Backend, reachable bool) {
	if r.remote == nil {
		return nil, nil, false
	}

	if p, ok := r.remote.(backend.Prober); ok {
		if err := p.Ping(ctx); err != nil {
			r.logger.Printf("Remote %s unreachable, running standalone: %v", r.remote.Name(), err)
			return nil, nil, false
		}
	}

	doc, err := r.remote.Read(ctx)
	switch {
	case err == nil:
		return doc, r.remote, true
	case errors.Is(err, backend.ErrNoData):
		return nil, r.remote, true
	default:
		r.logger.Printf("WARNING: Remote %s read failed, treating as unreachable: %v", r.remote.Name(), err)
		return nil, r.remote, false
	}
}

// readLocal returns the cached current board, or nil when it is missing or
// unusable.
func (r *reconciler) readLocal(ctx context.Context) *schema.Document {
	doc, err := r.local.Read(ctx)
	if err == nil {
		return doc
	}
	if !errors.Is(err, backend.ErrNoData) {
		r.logger.Printf("WARNING: Ignoring local board: %v", err)
	}
	return nil
}

// Restore implements Reconciler.Restore.
func (r *reconciler) Restore(ctx context.Context, source Source) (*schema.Document, error) {
	var (
		doc *schema.Document
		err error
	)

	switch source {
	case SourceLocal:
		doc, err = r.local.Read(ctx)
		if err == nil {
			doc = migrate.NormalizeV3(doc)
		}
	case SourceV2:
		doc, err = r.restoreLegacy(ctx, migrate.V2)
	case SourceV1:
		doc, err = r.restoreLegacy(ctx, migrate.V1)
	case SourceRemote:
		if r.remote == nil {
			return nil, fmt.Errorf("no remote backend configured")
		}
		doc, err = r.remote.Read(ctx)
		if err == nil {
			doc = migrate.NormalizeV3(doc)
		}
	case SourceSample:
		doc = schema.Sample()
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to restore from %s: %w", source, err)
	}
	r.logger.Printf("Restored board from %s: %s (%d tasks)", source, doc.Project.Name, len(doc.Tasks))
	return doc, nil
}

func (r *reconciler) restoreLegacy(ctx context.Context, v migrate.Version) (*schema.Document, error) {
	data, err := r.local.Legacy(ctx, v)
	if err != nil {
		return nil, err
	}
	doc, err := migrate.Migrate(v, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrMalformed, err)
	}
	return doc, nil
}

// Inspect implements Reconciler.Inspect.
func (r *reconciler) Inspect(ctx context.Context) []SourceInfo {
	infos := []SourceInfo{
		describe(SourceLocal, r.local.Name())(r.local.Read(ctx)),
		describe(SourceV2, r.local.Name())(r.restoreLegacy(ctx, migrate.V2)),
		describe(SourceV1, r.local.Name())(r.restoreLegacy(ctx, migrate.V1)),
	}

	if r.remote == nil {
		infos = append(infos, SourceInfo{Source: SourceRemote, State: StateNotConfigured})
		return infos
	}
	if p, ok := r.remote.(backend.Prober); ok {
		if err := p.Ping(ctx); err != nil {
			infos = append(infos, describe(SourceRemote, r.remote.Name())(nil, err))
			return infos
		}
	}
	infos = append(infos, describe(SourceRemote, r.remote.Name())(r.remote.Read(ctx)))
	return infos
}

func describe(src Source, name string) func(*schema.Document, error) SourceInfo {
	return func(doc *schema.Document, err error) SourceInfo {
		info := SourceInfo{Source: src, Backend: name}
		switch {
		case err == nil:
			info.State = StateOK
			info.Project = doc.Project.Name
			info.Modules = len(doc.Modules)
			info.Tasks = len(doc.Tasks)
		case errors.Is(err, backend.ErrNoData):
			info.State = StateNoData
		case errors.Is(err, backend.ErrMalformed):
			info.State = StateCorrupt
			info.Detail = err.Error()
		default:
			info.State = StateUnreachable
			info.Detail = err.Error()
		}
		return info
	}
}
