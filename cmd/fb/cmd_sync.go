package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/board"
	fbsync "github.com/mschirtzinger/flowboard/internal/sync"
	"github.com/mschirtzinger/flowboard/internal/ui"
)

func newRecoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recover",
		GroupID: "sync",
		Short:   "Inspect and restore earlier copies of the board",
	}
	cmd.AddCommand(newRecoverListCmd(a), newRecoverRestoreCmd(a))
	return cmd
}

func newRecoverListCmd(a *app) *cobra.Command {
	var showKeys bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every recoverable source and what it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.reconciler(cmd.Context())
			if err != nil {
				return err
			}
			ui.RenderSources(a.stdout, rec.Inspect(cmd.Context()))

			if !showKeys {
				return nil
			}
			entries, err := a.db.Entries(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout)
			fmt.Fprintln(a.stdout, ui.Header("Cache keys"))
			now := a.now()
			for _, e := range entries {
				fmt.Fprintf(a.stdout, "  %-18s %7d bytes  %s\n", e.Key, e.Size, ui.Dim(ui.Ago(e.UpdatedAt, now)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showKeys, "keys", false, "Also list raw cache keys")
	return cmd
}

func newRecoverRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <local|v2|v1|remote|sample>",
		Short: "Replace the board with the copy held by a source",
		Long: `Replace the current board with the copy held by one source and save
it locally and to the active remote. Legacy copies (v2, v1) are migrated
first; they are never modified.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"local", "v2", "v1", "remote", "sample"},
		RunE: func(cmd *cobra.Command, args []string) error {
			src, ok := fbsync.ParseSource(args[0])
			if !ok && args[0] == string(fbsync.SourceSample) {
				src, ok = fbsync.SourceSample, true
			}
			if !ok {
				return fmt.Errorf("unknown source %q (must be local, v2, v1, remote or sample)", args[0])
			}

			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := s.rec.Restore(cmd.Context(), src)
			if err != nil {
				return err
			}

			title := fmt.Sprintf("Replace %q with %q from %s?", s.board.Snapshot().Project.Name, doc.Project.Name, src)
			desc := fmt.Sprintf("%d module(s) and %d task(s) will replace the current board.", len(doc.Modules), len(doc.Tasks))
			if err := a.confirm.Confirm(title, desc); err != nil {
				return err
			}

			res, err := s.board.Replace(cmd.Context(), doc)
			if err != nil {
				return err
			}
			a.report(res)
			fmt.Fprintf(a.stdout, "Restored %q from %s (%d tasks)\n", doc.Project.Name, src, len(doc.Tasks))
			return nil
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "sync",
		Short:   "Show sync state, or push the board again with --force",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if s.outcome.Remote == nil {
				fmt.Fprintf(a.stdout, "%s no remote configured; the board is saved locally\n", ui.StatusBadge(board.StatusLocal))
				return nil
			}
			if !force {
				fmt.Fprintf(a.stdout, "%s loaded via %s\n", ui.StatusBadge(s.board.Status()), s.outcome.Rule)
				return nil
			}

			name := s.outcome.Remote.Name()
			if err := a.confirm.Confirm(fmt.Sprintf("Overwrite the %s copy with the local board?", name), ""); err != nil {
				return err
			}
			res := s.board.Save(cmd.Context())
			if err := res.Err(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s pushed to %s\n", ui.StatusBadge(res.Status), name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Save the local board to the remote now")
	return cmd
}
