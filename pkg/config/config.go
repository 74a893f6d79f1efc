// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the mod loader.
type Config struct {
	LogLevel   string           `yaml:"log_level" env:"MODLOADER_LOG_LEVEL"`
	Log        LogConfig        `yaml:"log"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Probe      ProbeConfig      `yaml:"probe"`
	Extensions ExtensionsConfig `yaml:"extensions"`
	Report     ReportConfig     `yaml:"report"`
}

// LogConfig selects where log output goes.
type LogConfig struct {
	Paths []string `yaml:"paths"` // zap sink URLs or file paths, "stderr" allowed
}

// RuntimeConfig describes how the Mono runtime module is located.
type RuntimeConfig struct {
	Modules      []string      `yaml:"modules"`       // candidate module file names, first mapped one wins
	PollInterval time.Duration `yaml:"poll_interval"` // delay between module lookups while waiting
}

// ProbeConfig names the host singleton whose flag signals readiness.
type ProbeConfig struct {
	Namespace     string `yaml:"namespace"`
	Class         string `yaml:"class"`
	InstanceField string `yaml:"instance_field"` // static field holding the singleton
	ReadyField    string `yaml:"ready_field"`    // bool field on the singleton
}

// ExtensionsConfig configures extension discovery.
type ExtensionsConfig struct {
	Dir      string   `yaml:"dir" env:"MODLOADER_EXTENSIONS_DIR"`
	Manifest string   `yaml:"manifest"`
	Disabled []string `yaml:"disabled"` // glob patterns matched against directory names
}

// ReportConfig configures the optional OTLP load report. An empty
// endpoint turns reporting off.
type ReportConfig struct {
	Endpoint    string        `yaml:"endpoint" env:"MODLOADER_OTLP_ENDPOINT"`
	Insecure    bool          `yaml:"insecure"`
	Compression string        `yaml:"compression"` // "gzip" or "none"
	Timeout     time.Duration `yaml:"timeout"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration matching the stock QMods layout.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Log: LogConfig{
			Paths: []string{"ModLoader_out.txt", "stderr"},
		},
		Runtime: RuntimeConfig{
			Modules: []string{
				"mono.dll",
				"mono-2.0-bdwgc.dll",
				"libmonobdwgc-2.0.so",
				"libmono.so",
				"libmonobdwgc-2.0.dylib",
			},
			PollInterval: time.Second,
		},
		Probe: ProbeConfig{
			Namespace:     "",
			Class:         "LargeWorldStreamer",
			InstanceField: "main",
			ReadyField:    "inited",
		},
		Extensions: ExtensionsConfig{
			Dir:      "QMods",
			Manifest: "mod.json",
		},
		Report: ReportConfig{
			Insecure:    true,
			Compression: "gzip",
			Timeout:     5 * time.Second,
		},
	}
}

// ApplyEnvOverrides reads MODLOADER_* environment variables and applies them
// to the config, overriding YAML values.
func (c *Config) ApplyEnvOverrides() {
	envOverrides := map[string]func(string){
		"MODLOADER_LOG_LEVEL":      func(v string) { c.LogLevel = v },
		"MODLOADER_EXTENSIONS_DIR": func(v string) { c.Extensions.Dir = v },
		"MODLOADER_MANIFEST":       func(v string) { c.Extensions.Manifest = v },
		"MODLOADER_OTLP_ENDPOINT":  func(v string) { c.Report.Endpoint = v },
		"MODLOADER_RUNTIME_MODULES": func(v string) {
			c.Runtime.Modules = splitList(v)
		},
		"MODLOADER_LOG_PATHS": func(v string) {
			c.Log.Paths = splitList(v)
		},
	}

	for envKey, setter := range envOverrides {
		if val := os.Getenv(envKey); val != "" {
			setter(val)
		}
	}

	if val := os.Getenv("MODLOADER_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			c.Runtime.PollInterval = d
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	if len(c.Log.Paths) == 0 {
		return fmt.Errorf("log.paths must name at least one sink")
	}

	if len(c.Runtime.Modules) == 0 {
		return fmt.Errorf("runtime.modules must name at least one module")
	}

	if c.Runtime.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("runtime.poll_interval must be at least 10ms")
	}

	if c.Probe.Class == "" || c.Probe.InstanceField == "" || c.Probe.ReadyField == "" {
		return fmt.Errorf("probe.class, probe.instance_field and probe.ready_field are required")
	}

	if c.Extensions.Dir == "" {
		return fmt.Errorf("extensions.dir is required")
	}

	if c.Extensions.Manifest == "" {
		return fmt.Errorf("extensions.manifest is required")
	}

	for _, pattern := range c.Extensions.Disabled {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("extensions.disabled pattern %q: %w", pattern, err)
		}
	}

	if c.Report.Endpoint != "" {
		switch c.Report.Compression {
		case "", "gzip", "none":
		default:
			return fmt.Errorf("report.compression must be gzip or none; got %q", c.Report.Compression)
		}
		if c.Report.Timeout <= 0 {
			return fmt.Errorf("report.timeout must be positive")
		}
	}

	return nil
}
