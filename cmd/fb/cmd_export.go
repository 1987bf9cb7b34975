package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/board"
)

func newExportCmd(a *app) *cobra.Command {
	var format, outDir string
	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "sync",
		Short:   "Write a dated backup of the board",
		Long: `Write the whole board to project_backup_YYYY-MM-DD.json (or .yaml).

The JSON file has exactly the shape held in the local cache and can be
loaded back with any client.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if outDir == "" {
				if outDir, err = a.projectDir(); err != nil {
					return err
				}
			}
			path, err := s.board.Export(outDir, format, a.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Exported %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", board.FormatJSON, "json or yaml")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory to write to (default: project directory)")
	return cmd
}
