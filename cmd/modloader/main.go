// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Command modloader is built with -buildmode=c-shared and injected into a
// Mono-hosted game. Loading the library starts the bootstrap in the
// background; the host's own startup continues undisturbed.
package main

import "C"

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mbeema/modloader/pkg/config"
	"github.com/mbeema/modloader/pkg/logging"
	"github.com/mbeema/modloader/pkg/modloader"
)

var (
	version = "dev"
	commit  = "unknown"
)

const configFile = "modloader.yaml"

func init() {
	go run()
}

func main() {}

func run() {
	host := modloader.DetectHost()

	configPath := os.Getenv("MODLOADER_CONFIG")
	if configPath == "" {
		configPath = host.Resolve(configFile)
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ModLoader] failed to load config: %v\n", err)
		return
	}

	logger, level, err := logging.New(cfg.LogLevel, resolvePaths(host, cfg.Log.Paths))
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ModLoader] failed to create logger: %v\n", err)
		return
	}
	defer logger.Sync()

	logger.Info("starting mod loader",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("config", configPath),
	)

	ml, err := modloader.New(cfg, logger, modloader.WithHost(host), modloader.WithVersion(version))
	if err != nil {
		logger.Fatal("failed to create mod loader", zap.Error(err))
	}

	ctx := context.Background()

	if _, err := os.Stat(configPath); err == nil {
		watcher := config.NewWatcher(configPath, func(newCfg *config.Config) {
			level.SetLevel(logging.ParseLevel(newCfg.LogLevel))
			ml.Reload(newCfg)
		}, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher unavailable", zap.Error(err))
		}
	}

	if err := ml.Bootstrap(ctx); err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}

	<-ml.Activation().Done()
	<-ml.Reported()
	logger.Sync()
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}

	cfg := config.DefaultConfig()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// resolvePaths places relative log files next to the host executable.
func resolvePaths(host modloader.Host, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "stderr" || p == "stdout" || strings.Contains(p, "://") || filepath.IsAbs(p) {
			out = append(out, p)
			continue
		}
		out = append(out, host.Resolve(p))
	}
	return out
}
