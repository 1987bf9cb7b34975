package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fb",
		Short: "flowboard: a project board with kanban, timeline and dependency risk",
		Long: `fb manages a project board of parent modules, modules and tasks.

The board lives in a local cache (.flowboard/cache.db) and is optionally
shared with a document server (--server) or a cloud store (fb cloud set).
On every start the local and remote copies are reconciled; every change is
saved locally first and then pushed to the remote.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.dir, "dir", "C", "", "Project directory (default: current directory)")
	pf.StringVar(&a.configFile, "config", "", "Config file (default: .flowboard/config.toml)")
	pf.String("data-dir", "", "Directory holding the local cache")
	pf.String("server", "", "Document server base URL, e.g. http://localhost:3000")
	pf.Duration("timeout", 0, "Timeout for remote requests")
	pf.String("log-file", "", "Also write logs to this file (rotated)")
	pf.BoolVarP(&a.yes, "yes", "y", false, "Do not ask for confirmation")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colour output")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Log to stderr")

	root.AddGroup(
		&cobra.Group{ID: "view", Title: "Viewing:"},
		&cobra.Group{ID: "edit", Title: "Editing:"},
		&cobra.Group{ID: "sync", Title: "Sync and recovery:"},
		&cobra.Group{ID: "serve", Title: "Servers:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	root.AddCommand(
		newStatusCmd(a),
		newBoardCmd(a),
		newTimelineCmd(a),
		newTaskCmd(a),
		newModuleCmd(a),
		newParentCmd(a),
		newProjectCmd(a),
		newExportCmd(a),
		newRecoverCmd(a),
		newSyncCmd(a),
		newCloudCmd(a),
		newConfigCmd(a),
		newServerCmd(a),
		newDashboardCmd(a),
	)
	return root
}
