package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/risk"
	"github.com/mschirtzinger/flowboard/internal/ui"
	"github.com/mschirtzinger/flowboard/internal/view"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "view",
		Short:   "Show connection mode, where the board came from and a risk summary",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			out := s.outcome
			v := view.NewBoard(s.board.Snapshot(), risk.Today(a.now()))

			w := a.stdout
			fmt.Fprintf(w, "Project:    %s\n", v.Document.Project.Name)
			fmt.Fprintf(w, "Connection: %s\n", ui.StatusBadge(s.board.Status()))
			if out.Remote != nil {
				reach := "reachable"
				if !out.RemoteReachable {
					reach = "unreachable"
				}
				fmt.Fprintf(w, "Remote:     %s (%s)\n", out.Remote.Name(), reach)
			}
			fmt.Fprintf(w, "Loaded:     %s via %s\n", out.Source, out.Rule)
			if out.MigratedFrom != 0 {
				fmt.Fprintf(w, "Migrated:   from %s\n", out.MigratedFrom)
			}
			if out.Pushed {
				result := "ok"
				if out.PushErr != nil {
					result = "failed"
				}
				fmt.Fprintf(w, "Pushed:     local board to remote (%s)\n", result)
			}
			fmt.Fprintf(w, "Board:      %d parents, %d modules, %d tasks\n",
				len(v.Document.ParentModules), len(v.Document.Modules), len(v.Document.Tasks))
			fmt.Fprintf(w, "Risk:       %s\n", ui.Summary(v))
			fmt.Fprintf(w, "Cache:      %s\n", a.cfg.CachePath())
			if a.cfg.File != "" {
				fmt.Fprintf(w, "Config:     %s\n", a.cfg.File)
			}
			return nil
		},
	}
}

func newBoardCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "board",
		GroupID: "view",
		Short:   "List parents, modules and tasks with risk badges",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			v := view.NewBoard(s.board.Snapshot(), risk.Today(a.now()))
			if asJSON {
				return writeJSON(a, v)
			}
			ui.RenderBoard(a.stdout, v, s.board.Status())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the board with risk results as JSON")
	return cmd
}

func newTimelineCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "timeline",
		GroupID: "view",
		Short:   "Show the gantt timeline: parent, module and task rows",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			rows := view.Timeline(view.NewBoard(s.board.Snapshot(), risk.Today(a.now())))
			if asJSON {
				if rows == nil {
					rows = []view.Row{}
				}
				return writeJSON(a, rows)
			}
			ui.RenderTimeline(a.stdout, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	return cmd
}

func writeJSON(a *app, v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
