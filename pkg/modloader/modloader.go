// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package modloader wires symbol resolution, hooking and extension loading
// into the single process-wide loader.
package modloader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/purego"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/mbeema/modloader/pkg/activation"
	"github.com/mbeema/modloader/pkg/config"
	"github.com/mbeema/modloader/pkg/extension"
	"github.com/mbeema/modloader/pkg/hook"
	"github.com/mbeema/modloader/pkg/mono"
	"github.com/mbeema/modloader/pkg/probe"
	"github.com/mbeema/modloader/pkg/report"
	"github.com/mbeema/modloader/pkg/symbols"
)

// Runtime is a bound Mono runtime that can also report raw export
// addresses, which the hook needs.
type Runtime interface {
	mono.Runtime
	Addr(symbol string) uintptr
}

// Binder binds a Runtime to a mapped module.
type Binder func(r symbols.Resolver, m symbols.Module) (Runtime, error)

// Option customizes a ModLoader.
type Option func(*ModLoader)

// WithResolver replaces the native symbol resolver.
func WithResolver(r symbols.Resolver) Option {
	return func(ml *ModLoader) { ml.resolver = r }
}

// WithRegistry replaces the native hook registry.
func WithRegistry(r *hook.Registry) Option {
	return func(ml *ModLoader) { ml.hooks = r }
}

// WithBinder replaces mono.Bind.
func WithBinder(b Binder) Option {
	return func(ml *ModLoader) { ml.bind = b }
}

// WithCallback replaces purego.NewCallback for creating the native detour.
func WithCallback(newCallback func(fn any) uintptr) Option {
	return func(ml *ModLoader) { ml.newCallback = newCallback }
}

// WithHost replaces host detection.
func WithHost(h Host) Option {
	return func(ml *ModLoader) { ml.host = &h }
}

// WithReporter sends load reports to r instead of dialing the configured
// OTLP endpoint.
func WithReporter(r Reporter) Option {
	return func(ml *ModLoader) { ml.reporter = r }
}

// WithVersion sets the version attached to load reports.
func WithVersion(v string) Option {
	return func(ml *ModLoader) { ml.version = v }
}

// Reporter receives the summary of a finished load pass.
type Reporter interface {
	Report(ctx context.Context, res report.Resource, sum extension.Summary) error
}

// ModLoader is the process-wide loader context. There is one per process
// and it is never torn down.
type ModLoader struct {
	cfg    atomic.Pointer[config.Config]
	logger *zap.Logger

	resolver    symbols.Resolver
	hooks       *hook.Registry
	bind        Binder
	newCallback func(fn any) uintptr
	host        *Host
	reporter    Reporter
	version     string
	reports     chan struct{}
	reportOnce  sync.Once

	rt      Runtime
	machine *activation.Machine
}

// New creates the loader. Nothing is resolved or patched until Bootstrap.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*ModLoader, error) {
	ml := &ModLoader{
		logger:      logger,
		bind:        bindBridge,
		newCallback: purego.NewCallback,
		reports:     make(chan struct{}),
	}
	ml.cfg.Store(cfg)

	for _, opt := range opts {
		opt(ml)
	}

	if ml.resolver == nil {
		ml.resolver = symbols.Native()
	}
	if ml.hooks == nil {
		reg, err := hook.NewNativeRegistry()
		if err != nil {
			return nil, oops.In("modloader").Code("HOOK_UNSUPPORTED").Wrapf(err, "create hook registry")
		}
		ml.hooks = reg
	}
	if ml.host == nil {
		h := DetectHost()
		ml.host = &h
	}
	return ml, nil
}

func bindBridge(r symbols.Resolver, m symbols.Module) (Runtime, error) {
	b, err := mono.Bind(r, m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Reload swaps the configuration. Extension settings take effect if the
// load has not started yet.
func (ml *ModLoader) Reload(cfg *config.Config) {
	ml.cfg.Store(cfg)
	ml.logger.Info("configuration reloaded")
}

// Host returns the detected host process.
func (ml *ModLoader) Host() Host {
	return *ml.host
}

// Activation returns the activation state machine, or nil before Bootstrap
// has bound the runtime.
func (ml *ModLoader) Activation() *activation.Machine {
	return ml.machine
}

// Bootstrap waits for the runtime module, binds the bridge and hooks
// mono_domain_get. Everything after that happens inside the detour. An
// error here leaves the host untouched.
func (ml *ModLoader) Bootstrap(ctx context.Context) error {
	cfg := ml.cfg.Load()
	ml.logger.Info("mod loader starting",
		zap.String("host", ml.host.Name),
		zap.Int32("pid", ml.host.PID),
		zap.String("dir", ml.host.Dir),
	)

	name, module, err := symbols.WaitForModule(ctx, ml.resolver, cfg.Runtime.Modules, cfg.Runtime.PollInterval, ml.logger)
	if err != nil {
		return oops.In("modloader").Code("RUNTIME_WAIT_ABORTED").Wrapf(err, "wait for runtime module")
	}

	rt, err := ml.bind(ml.resolver, module)
	if err != nil {
		return oops.In("modloader").With("module", name).Wrapf(err, "bind runtime")
	}
	ml.rt = rt

	target := probe.TargetFromConfig(cfg.Probe)
	ml.machine = activation.New(probe.New(rt, target, ml.logger), ml, ml.logger)

	detour := ml.newCallback(ml.onDomainGet)
	if err := ml.hooks.Install(mono.DomainGetSymbol, rt.Addr(mono.DomainGetSymbol), detour); err != nil {
		return oops.In("modloader").With("module", name).Wrapf(err, "install %s hook", mono.DomainGetSymbol)
	}

	ml.logger.Info("hook installed",
		zap.String("symbol", mono.DomainGetSymbol),
		zap.String("module", name),
	)
	return nil
}

// LoadAll implements activation.Loader against the current configuration.
func (ml *ModLoader) LoadAll(domain mono.Domain) extension.Summary {
	cfg := ml.cfg.Load()
	root := ml.host.Resolve(cfg.Extensions.Dir)

	d, err := extension.NewDiscoverer(cfg.Extensions.Manifest, cfg.Extensions.Disabled, ml.logger)
	if err != nil {
		ml.logger.Error("invalid extension configuration", zap.Error(err))
		ml.finishReport()
		return extension.Summary{}
	}
	sum := extension.NewLoader(root, d, extension.NewActivator(ml.rt, ml.logger), ml.logger).LoadAll(domain)

	if ml.reporter != nil || cfg.Report.Endpoint != "" {
		go ml.report(cfg.Report, sum)
	} else {
		ml.finishReport()
	}
	return sum
}

// Reported is closed once the load report has been sent or abandoned.
func (ml *ModLoader) Reported() <-chan struct{} {
	return ml.reports
}

func (ml *ModLoader) finishReport() {
	ml.reportOnce.Do(func() { close(ml.reports) })
}

// report runs on its own goroutine, never on the hooked host thread.
func (ml *ModLoader) report(cfg config.ReportConfig, sum extension.Summary) {
	defer ml.finishReport()

	r := ml.reporter
	if r == nil {
		e, err := report.New(cfg, ml.logger)
		if err != nil {
			ml.logger.Warn("load report disabled", zap.Error(err))
			return
		}
		defer e.Shutdown()
		r = e
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res := report.Resource{HostName: ml.host.Name, PID: ml.host.PID, Version: ml.version}
	if err := r.Report(ctx, res, sum); err != nil {
		ml.logger.Warn("load report not delivered", zap.Error(err))
	}
}

// onDomainGet replaces mono_domain_get. It runs on whatever host thread
// asked for the domain, possibly several at once.
func (ml *ModLoader) onDomainGet() uintptr {
	s, err := ml.hooks.Suspend(mono.DomainGetSymbol)
	if err != nil {
		ml.logger.Fatal("cannot suspend domain hook", zap.Error(err))
	}

	rearm := true
	defer func() {
		if !rearm {
			s.Release()
			return
		}
		if err := s.Resume(); err != nil {
			ml.logger.Error("cannot re-arm domain hook", zap.Error(err))
		}
	}()

	domain := mono.Domain(s.CallOriginal())
	if domain == 0 {
		ml.logger.Fatal("mono_domain_get returned a null domain")
	}

	rearm = ml.machine.Intercept(domain)
	if !rearm {
		ml.logger.Info("domain hook released", zap.Stringer("state", ml.machine.State()))
	}
	return uintptr(domain)
}
