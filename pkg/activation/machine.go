// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package activation sequences the one-time load of extensions against the
// host's startup: wait for the first domain, wait for readiness, load once.
package activation

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mbeema/modloader/pkg/extension"
	"github.com/mbeema/modloader/pkg/mono"
)

// State is the activation progress. It only moves forward.
type State int32

const (
	Idle State = iota
	AwaitingReadiness
	Loading
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingReadiness:
		return "awaiting-readiness"
	case Loading:
		return "loading"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Probe reports whether the host is ready for extensions.
type Probe interface {
	Ready(domain mono.Domain) bool
}

// Loader loads every extension once.
type Loader interface {
	LoadAll(domain mono.Domain) extension.Summary
}

// Machine drives activation from intercepted domain lookups. It is safe for
// concurrent use; exactly one caller performs the load.
type Machine struct {
	probe  Probe
	loader Loader
	logger *zap.Logger

	state    atomic.Int32
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Machine in the Idle state.
func New(probe Probe, loader Loader, logger *zap.Logger) *Machine {
	return &Machine{
		probe:  probe,
		loader: loader,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Done is closed once loading has completed.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Intercept is called with the domain returned by each intercepted lookup.
// It reports whether interception should continue.
func (m *Machine) Intercept(domain mono.Domain) (rearm bool) {
	if domain == 0 {
		return m.State() < Loading
	}

	if m.state.CompareAndSwap(int32(Idle), int32(AwaitingReadiness)) {
		m.logger.Info("domain observed, awaiting readiness", zap.Uintptr("domain", uintptr(domain)))
	}

	if m.State() != AwaitingReadiness {
		return false
	}
	if !m.probe.Ready(domain) {
		return true
	}
	if !m.state.CompareAndSwap(int32(AwaitingReadiness), int32(Loading)) {
		return false
	}

	m.logger.Info("host ready, loading extensions")
	summary := m.loader.LoadAll(domain)
	m.state.Store(int32(Completed))
	m.doneOnce.Do(func() { close(m.done) })

	m.logger.Info("extension loading complete",
		zap.Int64("discovered", summary.Discovered),
		zap.Int64("loaded", summary.Loaded),
		zap.Int64("failed", summary.Failed),
		zap.Int64("skipped", summary.Skipped),
	)
	return false
}
