package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: "setup",
		Short:   "Create or show the configuration",
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configFile
			if path == "" {
				dir, err := a.projectDir()
				if err != nil {
					return err
				}
				path = config.DefaultPath(dir)
			}
			if err := config.Init(path, force); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Long: `Print the configuration after defaults, config file, environment and
flags are applied. The cloud api key is redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			cfg.Cloud = cfg.Cloud.Redacted()
			data, err := config.Encode(&cfg)
			if err != nil {
				return err
			}
			if cfg.File != "" {
				fmt.Fprintf(a.stdout, "# read from %s\n", cfg.File)
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}
