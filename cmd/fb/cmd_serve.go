package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/config"
	"github.com/mschirtzinger/flowboard/internal/dashboard"
	"github.com/mschirtzinger/flowboard/internal/docserver"
)

func newServerCmd(a *app) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:     "server",
		GroupID: "serve",
		Short:   "Run the reference document server",
		Long: `Serve one JSON board file over HTTP for fb --server and other clients.

Endpoints:
  GET  /api/health   liveness
  GET  /api/data     the stored board
  POST /api/data     replace the stored board

The file is created with an empty board if missing, and reloaded when edited
on disk.`,
		Annotations: map[string]string{
			"port-key": "docserver.port",
			"file-key": "docserver.file",
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := docserver.NewServer(&docserver.Config{
				Port:   a.cfg.DocServer.Port,
				File:   a.cfg.DocServer.File,
				Watch:  !noWatch,
				Logger: a.logger("docserver"),
			})
			if err != nil {
				return err
			}
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start document server: %w", err)
			}

			fmt.Fprintf(a.stdout, "Document server started on http://%s\n", server.GetAddr())
			fmt.Fprintf(a.stdout, "Serving %s\n", server.Store().Path())
			fmt.Fprintln(a.stdout, "\nPress Ctrl+C to stop...")

			waitForSignal(cmd.Context())

			fmt.Fprintln(a.stdout, "\nShutting down document server...")
			return server.Stop()
		},
	}
	f := cmd.Flags()
	f.IntP("port", "p", config.Defaults().DocServer.Port, "Port to listen on")
	f.String("file", config.Defaults().DocServer.File, "Board file to serve")
	f.BoolVar(&noWatch, "no-watch", false, "Do not reload the file on external edits")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		GroupID: "serve",
		Short:   "Serve the board, timeline and live updates to a browser",
		Long: `Start a local dashboard for the board.

Endpoints:
  /ws                              websocket: document_changed, save_status, config_reloaded
  GET  /health                     connection status
  GET  /api/board                  the board with risk per task
  GET  /api/timeline               gantt rows
  POST /api/tasks/{id}/toggle      mark a task done or reopen it
  POST /api/tasks/{id}/dates       move a task: {"startDate": ..., "endDate": ...}
  POST /api/modules/{id}/dates     move a module

Changes made through the POST routes follow the normal save path: local cache
first, then the active remote. Boards saved by other fb commands are picked up
from the local cache within a few seconds.`,
		Annotations: map[string]string{"port-key": "dashboard.port"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			server := dashboard.NewServer(s.board, &dashboard.Config{
				Port:   a.cfg.Dashboard.Port,
				Now:    a.now,
				Logger: a.logger("dashboard"),
			})
			if err := server.Start(); err != nil {
				return fmt.Errorf("failed to start dashboard: %w", err)
			}

			dir, err := a.projectDir()
			if err != nil {
				return err
			}
			logger := a.logger("config")
			config.Watch(a.viper, dir, func(cfg *config.Config, e fsnotify.Event, err error) {
				if err != nil {
					logger.Printf("WARNING: Ignoring config change: %v", err)
					return
				}
				server.Handler().OnConfigReloaded(e.Name)
			})

			addr := server.GetAddr()
			fmt.Fprintf(a.stdout, "Dashboard server started on http://%s\n", addr)
			fmt.Fprintf(a.stdout, "WebSocket endpoint: ws://%s/ws\n", addr)
			fmt.Fprintf(a.stdout, "Health check: http://%s/health\n", addr)
			fmt.Fprintln(a.stdout, "\nPress Ctrl+C to stop...")

			waitForSignal(cmd.Context())

			fmt.Fprintln(a.stdout, "\nShutting down dashboard server...")
			return server.Stop()
		},
	}
	cmd.Flags().IntP("port", "p", config.Defaults().Dashboard.Port, "Port to listen on")
	return cmd
}

func waitForSignal(parent context.Context) {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
}
