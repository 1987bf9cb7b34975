package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/board"
	"github.com/mschirtzinger/flowboard/internal/cache"
	"github.com/mschirtzinger/flowboard/internal/config"
	"github.com/mschirtzinger/flowboard/internal/dates"
	"github.com/mschirtzinger/flowboard/internal/logging"
	"github.com/mschirtzinger/flowboard/internal/remote"
	"github.com/mschirtzinger/flowboard/internal/schema"
	fbsync "github.com/mschirtzinger/flowboard/internal/sync"
	"github.com/mschirtzinger/flowboard/internal/ui"
)

// app carries the state shared by one fb invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// Global flags.
	dir        string
	configFile string
	yes        bool
	noColor    bool
	verbose    bool

	cfg     *config.Config
	viper   *viper.Viper
	logs    *logging.Factory
	db      *cache.DB
	confirm ui.Confirmer
	dates   *dates.Parser
	now     func() time.Time
}

// flagBindings maps config keys to global flag names.
var flagBindings = map[string]string{
	"data_dir":     "data-dir",
	"server.url":   "server",
	"http.timeout": "timeout",
	"log.file":     "log-file",
}

// Replaced by tests.
var (
	confirmer = func(yes bool) ui.Confirmer { return ui.Confirmer{Yes: yes} }
	newID     func() string
)

// load resolves configuration and logging for cmd.
func (a *app) load(cmd *cobra.Command) error {
	ui.SetColor(!a.noColor)
	if a.now == nil {
		a.now = time.Now
	}

	bindings := make(map[string]string, len(flagBindings)+2)
	for k, v := range flagBindings {
		bindings[k] = v
	}
	// Per-command keys share short flag names.
	if key, ok := cmd.Annotations["port-key"]; ok {
		bindings[key] = "port"
	}
	if key, ok := cmd.Annotations["file-key"]; ok {
		bindings[key] = "file"
	}

	cfg, v, err := config.Load(config.Options{
		Dir:      a.dir,
		File:     a.configFile,
		Flags:    cmd.Flags(),
		Bindings: bindings,
	})
	if err != nil {
		return err
	}
	a.cfg, a.viper = cfg, v

	logs, err := logging.New(logging.Options{File: cfg.Log.File, Verbose: a.verbose, Stderr: a.stderr})
	if err != nil {
		return err
	}
	a.logs = logs
	a.confirm = confirmer(a.yes)
	a.dates = dates.NewParser(a.now)
	return nil
}

// projectDir is the resolved --dir.
func (a *app) projectDir() (string, error) {
	if a.dir != "" {
		return filepath.Abs(a.dir)
	}
	return os.Getwd()
}

func (a *app) logger(component string) *log.Logger {
	return a.logs.Logger(component)
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			fmt.Fprintf(a.stderr, "Warning: failed to close cache: %v\n", err)
		}
		a.db = nil
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

// cache opens the local cache once per invocation.
func (a *app) cache() (*cache.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := cache.Open(a.cfg.CachePath())
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) remoteOptions() remote.Options {
	return remote.Options{Timeout: a.cfg.HTTP.Timeout, Logger: a.logger("remote")}
}

// cloudConfig returns the effective cloud config: the config file's cloud
// section when present, otherwise the one saved in the local cache.
func (a *app) cloudConfig(ctx context.Context, db *cache.DB) (remote.CloudConfig, string, error) {
	if !a.cfg.Cloud.IsZero() {
		return a.cfg.Cloud, "config", nil
	}
	cc, err := remote.LoadCloudConfig(ctx, db)
	if err != nil {
		return remote.CloudConfig{}, "", err
	}
	return cc, "cache", nil
}

// remote selects the single remote-class backend: the cloud if one is
// configured, otherwise the document server if a URL is set, otherwise nil.
func (a *app) remote(ctx context.Context, db *cache.DB) (backend.Backend, error) {
	cc, _, err := a.cloudConfig(ctx, db)
	if err != nil {
		if !errors.Is(err, backend.ErrMalformed) {
			return nil, err
		}
		a.logger("remote").Printf("WARNING: Ignoring saved cloud config: %v", err)
	}
	if !cc.IsZero() {
		return remote.NewCloud(cc, a.remoteOptions())
	}
	if a.cfg.Server.URL != "" {
		return remote.NewServer(a.cfg.Server.URL, a.remoteOptions())
	}
	return nil, nil
}

func (a *app) reconciler(ctx context.Context) (fbsync.Reconciler, error) {
	db, err := a.cache()
	if err != nil {
		return nil, err
	}
	rb, err := a.remote(ctx, db)
	if err != nil {
		return nil, err
	}
	return fbsync.New(db, rb, a.logger("sync")), nil
}

// session is a loaded board ready for commands.
type session struct {
	rec     fbsync.Reconciler
	outcome *fbsync.Outcome
	board   *board.Board
}

// session reconciles and wraps the adopted board.
func (a *app) session(ctx context.Context) (*session, error) {
	rec, err := a.reconciler(ctx)
	if err != nil {
		return nil, err
	}
	out, err := rec.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	if out.PushErr != nil {
		fmt.Fprintf(a.stderr, "Warning: failed to push local board to %s: %v\n", out.Remote.Name(), out.PushErr)
	}
	b := board.New(out.Document, a.db, out.Remote, a.logger("board"))
	if out.Pushed && out.PushErr != nil {
		b.MarkFailed()
	}
	if newID != nil {
		b.NewID = newID
	}
	return &session{rec: rec, outcome: out, board: b}, nil
}

// report prints a save failure, if any, to stderr.
func (a *app) report(res board.SaveResult) {
	ui.RenderSave(a.stderr, res)
}

// date normalises a user-typed date.
func (a *app) date(s string) (string, error) {
	return a.dates.Normalize(s)
}

// resolveID matches input against ids exactly or by unique prefix.
func resolveID(kind, input string, ids []string) (string, error) {
	var matches []string
	for _, id := range ids {
		if id == input {
			return id, nil
		}
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no %s matches %q", kind, input)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%s %q is ambiguous: %s", kind, input, strings.Join(matches, ", "))
	}
}

func taskID(doc *schema.Document, input string) (string, error) {
	ids := make([]string, len(doc.Tasks))
	for i, t := range doc.Tasks {
		ids[i] = t.ID
	}
	return resolveID("task", input, ids)
}

func moduleID(doc *schema.Document, input string) (string, error) {
	ids := make([]string, len(doc.Modules))
	for i, m := range doc.Modules {
		ids[i] = m.ID
	}
	return resolveID("module", input, ids)
}

func parentID(doc *schema.Document, input string) (string, error) {
	ids := make([]string, len(doc.ParentModules))
	for i, p := range doc.ParentModules {
		ids[i] = p.ID
	}
	return resolveID("parent module", input, ids)
}

func taskIDs(doc *schema.Document, inputs []string) ([]string, error) {
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		id, err := taskID(doc, in)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
