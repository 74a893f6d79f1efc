// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import (
	"os"

	"go.uber.org/zap"

	"github.com/mbeema/modloader/pkg/mono"
)

// Result is the outcome of activating one extension.
type Result int

const (
	Loaded Result = iota
	SkippedNoEntry
	ModuleOpenFailed
	ClassNotFound
	MethodNotFound
	EntryThrew
	// Rejected means discovery skipped the extension before activation.
	Rejected
)

func (r Result) String() string {
	switch r {
	case Loaded:
		return "loaded"
	case SkippedNoEntry:
		return "skipped-no-entry"
	case ModuleOpenFailed:
		return "module-open-failed"
	case ClassNotFound:
		return "class-not-found"
	case MethodNotFound:
		return "method-not-found"
	case EntryThrew:
		return "entry-threw"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Activator opens extension modules and invokes their entry methods.
type Activator struct {
	rt     mono.Runtime
	logger *zap.Logger
}

// NewActivator creates an Activator.
func NewActivator(rt mono.Runtime, logger *zap.Logger) *Activator {
	return &Activator{rt: rt, logger: logger}
}

// Activate loads desc into domain and calls its entry method with no
// instance and no arguments. Every outcome is logged.
func (a *Activator) Activate(desc *Descriptor, domain mono.Domain) Result {
	log := a.logger.With(zap.String("extension", desc.Name))

	if desc.Entry == nil {
		log.Warn("no entry method, skipping")
		return SkippedNoEntry
	}
	log = log.With(zap.String("entry", desc.Entry.String()))

	if _, err := os.Stat(desc.ModulePath); err != nil {
		log.Warn("module not found", zap.String("module", desc.ModulePath), zap.Error(err))
		return ModuleOpenFailed
	}
	assembly := a.rt.OpenAssembly(domain, desc.ModulePath)
	if assembly == 0 {
		log.Warn("module failed to open", zap.String("module", desc.ModulePath))
		return ModuleOpenFailed
	}
	img := a.rt.AssemblyImage(assembly)
	if img == 0 {
		log.Warn("module has no image", zap.String("module", desc.ModulePath))
		return ModuleOpenFailed
	}

	class := a.rt.ClassFromName(img, desc.Entry.Namespace, desc.Entry.Class)
	if class == 0 {
		log.Warn("entry class not found")
		return ClassNotFound
	}
	method := a.rt.MethodFromName(class, desc.Entry.Method, 0)
	if method == 0 {
		log.Warn("entry method not found")
		return MethodNotFound
	}

	if _, exc := a.rt.Invoke(method, 0, nil); exc != 0 {
		log.Error("entry method threw", zap.Uintptr("exception", uintptr(exc)))
		return EntryThrew
	}
	log.Info("extension loaded")
	return Loaded
}
