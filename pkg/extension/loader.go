// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import (
	"go.uber.org/zap"

	"github.com/mbeema/modloader/pkg/mono"
)

// Loader discovers and activates every extension under a root directory.
type Loader struct {
	root      string
	discover  *Discoverer
	activator *Activator
	logger    *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(root string, d *Discoverer, a *Activator, logger *zap.Logger) *Loader {
	return &Loader{root: root, discover: d, activator: a, logger: logger}
}

// LoadAll activates each extension in discovery order. A failing extension
// is counted and logged; it never stops the others.
func (l *Loader) LoadAll(domain mono.Domain) Summary {
	stats := NewStats()
	l.logger.Info("loading extensions", zap.String("dir", l.root))

	for desc, err := range l.discover.Scan(l.root) {
		o := Outcome{Extension: desc.Name, Module: desc.ModulePath}
		if desc.Entry != nil {
			o.Entry = desc.Entry.String()
		}
		if err != nil {
			o.Result, o.Reason = Rejected, err.Error()
		} else {
			o.Result = l.activator.Activate(desc, domain)
		}
		stats.Observe(o)
	}
	return stats.Snapshot()
}
