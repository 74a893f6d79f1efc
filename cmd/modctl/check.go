// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mbeema/modloader/pkg/config"
	"github.com/mbeema/modloader/pkg/extension"
	"github.com/mbeema/modloader/pkg/logging"
)

type checkConfig struct {
	strict bool
}

func newCheckCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	cfg := &checkConfig{}

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Report which extensions in a directory would load",
		Long: `Run extension discovery against a directory (the configured extensions
directory by default) and print the outcome for every extension found.
No runtime is involved, so class and method lookups are not checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaderCfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			root := loaderCfg.Extensions.Dir
			if len(args) == 1 {
				root = args[0]
			}
			return runCheck(cmd, cfg, loaderCfg, root)
		},
	}
	cmd.Flags().BoolVar(&cfg.strict, "strict", false, "exit non-zero if any extension would not load")
	return cmd
}

func runCheck(cmd *cobra.Command, cfg *checkConfig, loaderCfg *config.Config, root string) error {
	logger, _, err := logging.New("error", []string{"stderr"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	d, err := extension.NewDiscoverer(loaderCfg.Extensions.Manifest, loaderCfg.Extensions.Disabled, logger)
	if err != nil {
		return err
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("extensions directory: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXTENSION\tSTATUS\tENTRY\tDETAIL")

	var total, problems int
	for desc, err := range d.Scan(root) {
		total++
		status, entry, detail := "ok", "", ""
		switch {
		case errors.Is(err, extension.ErrDisabled):
			status, detail = "disabled", err.Error()
		case err != nil:
			status, detail = "skipped", err.Error()
			problems++
		case desc.Entry == nil:
			status, detail = "no-entry", desc.ModulePath
		default:
			entry, detail = desc.Entry.String(), desc.ModulePath
			if _, err := os.Stat(desc.ModulePath); err != nil {
				status = "missing-module"
				problems++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", desc.Name, status, entry, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d extension(s), %d problem(s)\n", total, problems)
	if cfg.strict && problems > 0 {
		return fmt.Errorf("%d extension(s) would not load", problems)
	}
	return nil
}
