package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/remote"
	"github.com/mschirtzinger/flowboard/internal/ui"
)

func newCloudCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cloud",
		GroupID: "sync",
		Short:   "Configure the cloud store",
		Long: `A configured cloud takes precedence over the document server.

The cloud config set here is saved in the local cache. A [cloud] section in
the config file, or FLOWBOARD_CLOUD_* variables, override it.`,
	}
	set := &cobra.Command{
		Use:   "set",
		Short: "Save a cloud config",
	}
	set.AddCommand(newCloudSetJSONBinCmd(a), newCloudSetCustomCmd(a))
	cmd.AddCommand(set, newCloudShowCmd(a), newCloudTestCmd(a), newCloudClearCmd(a))
	return cmd
}

func newCloudSetJSONBinCmd(a *app) *cobra.Command {
	var cc remote.CloudConfig
	cmd := &cobra.Command{
		Use:   "jsonbin",
		Short: "Use a jsonbin.io bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc.Type = remote.CloudJSONBin
			return a.saveCloud(cmd.Context(), cc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cc.BinID, "bin-id", "", "Bin id")
	f.StringVar(&cc.APIKey, "api-key", "", "Master key")
	f.StringVar(&cc.BaseURL, "base-url", "", "API root (default "+remote.DefaultJSONBinBase+")")
	_ = cmd.MarkFlagRequired("bin-id")
	_ = cmd.MarkFlagRequired("api-key")
	return cmd
}

func newCloudSetCustomCmd(a *app) *cobra.Command {
	var cc remote.CloudConfig
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Use any URL that answers GET and POST with the raw board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc.Type = remote.CloudCustom
			return a.saveCloud(cmd.Context(), cc)
		},
	}
	cmd.Flags().StringVar(&cc.URL, "url", "", "Endpoint URL")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func (a *app) saveCloud(ctx context.Context, cc remote.CloudConfig) error {
	db, err := a.cache()
	if err != nil {
		return err
	}
	if err := remote.SaveCloudConfig(ctx, db, cc); err != nil {
		return fmt.Errorf("failed to save cloud config: %w", err)
	}
	fmt.Fprintf(a.stdout, "Saved %s cloud config\n", cc.Type)
	if !a.cfg.Cloud.IsZero() {
		fmt.Fprintf(a.stderr, "Warning: the [cloud] section of %s overrides the saved config\n", a.cfg.File)
	}
	return nil
}

func newCloudShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective cloud config with the key redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.cache()
			if err != nil {
				return err
			}
			cc, from, err := a.cloudConfig(cmd.Context(), db)
			if err != nil {
				return err
			}
			if cc.IsZero() {
				fmt.Fprintln(a.stdout, "No cloud configured")
				return nil
			}
			cc = cc.Redacted()
			w := a.stdout
			fmt.Fprintf(w, "Type:     %s\n", cc.Type)
			switch cc.Type {
			case remote.CloudJSONBin:
				base := cc.BaseURL
				if base == "" {
					base = remote.DefaultJSONBinBase
				}
				fmt.Fprintf(w, "Bin id:   %s\n", cc.BinID)
				fmt.Fprintf(w, "API key:  %s\n", cc.APIKey)
				fmt.Fprintf(w, "Base URL: %s\n", base)
			case remote.CloudCustom:
				fmt.Fprintf(w, "URL:      %s\n", cc.URL)
			}
			fmt.Fprintf(w, "From:     %s\n", from)
			return nil
		},
	}
}

func newCloudTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Fetch the board from the cloud without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.cache()
			if err != nil {
				return err
			}
			cc, _, err := a.cloudConfig(cmd.Context(), db)
			if err != nil {
				return err
			}
			if cc.IsZero() {
				return fmt.Errorf("no cloud configured (see fb cloud set)")
			}
			rb, err := remote.NewCloud(cc, a.remoteOptions())
			if err != nil {
				return err
			}

			doc, err := rb.Read(cmd.Context())
			switch {
			case errors.Is(err, backend.ErrNoData):
				fmt.Fprintf(a.stdout, "%s reachable, no board stored yet\n", ui.StyleGreen.Render(rb.Name()))
				return nil
			case err != nil:
				return fmt.Errorf("%s: %w", rb.Name(), err)
			}
			fmt.Fprintf(a.stdout, "%s reachable: %q, %d modules, %d tasks\n",
				ui.StyleGreen.Render(rb.Name()), doc.Project.Name, len(doc.Modules), len(doc.Tasks))
			return nil
		},
	}
}

func newCloudClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved cloud config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.cache()
			if err != nil {
				return err
			}
			if err := a.confirm.Confirm("Forget the saved cloud config?", "The board stays in the cloud and in the local cache."); err != nil {
				return err
			}
			if err := remote.ClearCloudConfig(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Cleared cloud config")
			return nil
		},
	}
}
