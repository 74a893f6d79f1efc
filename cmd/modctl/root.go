// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package main

import (
	"github.com/spf13/cobra"

	"github.com/mbeema/modloader/pkg/config"
)

// NewRootCmd creates the root command for modctl.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "modctl",
		Short:         "Inspect mod loader extensions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "modloader.yaml to read extension settings from")

	loadConfig := func() (*config.Config, error) {
		if configFile == "" {
			cfg := config.DefaultConfig()
			cfg.ApplyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return config.Load(configFile)
	}

	cmd.AddCommand(newCheckCmd(loadConfig))
	cmd.AddCommand(newSchemaCmd())
	return cmd
}
