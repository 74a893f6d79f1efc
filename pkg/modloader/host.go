// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package modloader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Host describes the process the loader was injected into.
type Host struct {
	PID  int32
	Name string // executable name without extension
	Exe  string
	Dir  string // directory holding the executable
}

// DetectHost inspects the current process. Fields that cannot be read are
// left empty; Dir falls back to the working directory.
func DetectHost() Host {
	h := Host{PID: int32(os.Getpid())}

	if proc, err := process.NewProcess(h.PID); err == nil {
		if name, err := proc.Name(); err == nil {
			h.Name = name
		}
		if exe, err := proc.Exe(); err == nil {
			h.Exe = exe
		}
	}
	if h.Exe == "" {
		if exe, err := os.Executable(); err == nil {
			h.Exe = exe
		}
	}
	if h.Name == "" && h.Exe != "" {
		h.Name = filepath.Base(h.Exe)
	}
	h.Name = strings.TrimSuffix(h.Name, filepath.Ext(h.Name))

	if h.Exe != "" {
		h.Dir = filepath.Dir(h.Exe)
	} else if wd, err := os.Getwd(); err == nil {
		h.Dir = wd
	}
	return h
}

// Resolve makes a relative path relative to the host executable directory.
func (h Host) Resolve(path string) string {
	if filepath.IsAbs(path) || h.Dir == "" {
		return path
	}
	return filepath.Join(h.Dir, path)
}
