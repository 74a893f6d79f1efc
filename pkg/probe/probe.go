// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package probe decides whether the host's managed world has finished
// initializing, by reading a boolean flag on a well-known singleton.
package probe

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/mbeema/modloader/pkg/config"
	"github.com/mbeema/modloader/pkg/mono"
)

// Target names the singleton and flag to inspect.
type Target struct {
	Namespace     string
	Class         string
	InstanceField string // static field holding the singleton
	ReadyField    string // boolean instance field, true once initialized
}

// TargetFromConfig builds a Target from the probe section of the config.
func TargetFromConfig(c config.ProbeConfig) Target {
	return Target{
		Namespace:     c.Namespace,
		Class:         c.Class,
		InstanceField: c.InstanceField,
		ReadyField:    c.ReadyField,
	}
}

// Probe reads Target through a Mono runtime.
type Probe struct {
	rt     mono.Runtime
	target Target
	logger *zap.Logger
}

// New creates a Probe.
func New(rt mono.Runtime, target Target, logger *zap.Logger) *Probe {
	return &Probe{rt: rt, target: target, logger: logger}
}

// Ready reports whether the target flag is set. Every missing piece (class
// not loaded yet, field absent, singleton null) means not ready. Ready
// has no side effects on the runtime.
func (p *Probe) Ready(domain mono.Domain) bool {
	if domain == 0 {
		return false
	}

	var class mono.Class
	p.rt.ForEachAssembly(func(a mono.Assembly) bool {
		img := p.rt.AssemblyImage(a)
		if img == 0 {
			return true
		}
		class = p.rt.ClassFromName(img, p.target.Namespace, p.target.Class)
		return class == 0
	})
	if class == 0 {
		p.logger.Debug("readiness class not loaded", zap.String("class", p.target.Class))
		return false
	}

	instField := p.rt.FieldFromName(class, p.target.InstanceField)
	if instField == 0 {
		p.logger.Debug("singleton field not found", zap.String("field", p.target.InstanceField))
		return false
	}
	var instance mono.Object
	p.rt.StaticFieldValue(domain, class, instField, unsafe.Pointer(&instance))
	if instance == 0 {
		p.logger.Debug("singleton not assigned", zap.String("class", p.target.Class))
		return false
	}

	readyField := p.rt.FieldFromName(class, p.target.ReadyField)
	if readyField == 0 {
		p.logger.Debug("ready field not found", zap.String("field", p.target.ReadyField))
		return false
	}
	var ready uint8
	p.rt.FieldValue(instance, readyField, unsafe.Pointer(&ready))
	return ready != 0
}
