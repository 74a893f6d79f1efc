// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package hook patches the prologue of native functions in the current
// process so calls land in a detour, and restores them on demand.
package hook

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/oops"
)

var (
	// ErrDoubleHook means a record already exists for the name.
	ErrDoubleHook = errors.New("double hook")
	// ErrNotFound means no record exists for the name.
	ErrNotFound = errors.New("hook not found")
	// ErrBadAddress means a zero target or detour address was passed.
	ErrBadAddress = errors.New("invalid hook address")
)

// Record is the observable state of one hooked function.
type Record struct {
	Name      string
	Original  uintptr // address of the patched function, captured at install
	Detour    uintptr
	Installed bool // true while the jump to Detour is written
}

// Caller invokes native code at fn with the platform calling convention.
type Caller func(fn uintptr, args ...uintptr) uintptr

// entry serializes every state change of one record. Suspension holds mu
// for its whole lifetime.
type entry struct {
	mu    sync.Mutex
	rec   Record
	saved []byte // original prologue bytes
	patch []byte // jump stub to Detour
}

// Registry owns every hook in the process. The zero value is not usable;
// use NewRegistry or NewNativeRegistry.
type Registry struct {
	mem  Memory
	arch Arch
	call Caller

	mu    sync.RWMutex
	hooks map[string]*entry
}

// NewRegistry creates a registry patching through mem with arch's jump stub.
func NewRegistry(mem Memory, arch Arch, call Caller) *Registry {
	return &Registry{
		mem:   mem,
		arch:  arch,
		call:  call,
		hooks: make(map[string]*entry),
	}
}

func hookErr(name string) oops.OopsErrorBuilder {
	return oops.In("hook").With("hook", name)
}

// Install redirects target to detour. A name can be installed only once;
// use Redetour to re-arm a restored hook.
func (r *Registry) Install(name string, target, detour uintptr) error {
	if target == 0 || detour == 0 {
		return hookErr(name).Code("HOOK_BAD_ADDRESS").Wrap(ErrBadAddress)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hooks[name]; ok {
		return hookErr(name).Code("HOOK_EXISTS").Wrap(ErrDoubleHook)
	}

	saved, err := r.mem.Read(target, r.arch.JumpSize())
	if err != nil {
		return hookErr(name).Code("HOOK_READ_FAILED").With("target", fmt.Sprintf("0x%x", target)).Wrap(err)
	}

	e := &entry{
		rec: Record{
			Name:     name,
			Original: target,
			Detour:   detour,
		},
		saved: saved,
		patch: r.arch.Jump(target, detour),
	}
	if err := r.mem.Write(target, e.patch); err != nil {
		return hookErr(name).Code("HOOK_WRITE_FAILED").With("target", fmt.Sprintf("0x%x", target)).Wrap(err)
	}
	e.rec.Installed = true

	r.hooks[name] = e
	return nil
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.hooks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, hookErr(name).Code("HOOK_NOT_FOUND").Wrap(ErrNotFound)
	}
	return e, nil
}

// Restore writes the original prologue back. Restoring an already restored
// hook is a no-op.
func (r *Registry) Restore(name string) error {
	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return r.restoreLocked(e)
}

// Redetour re-applies the jump for a restored hook. Redetouring an installed
// hook is a no-op.
func (r *Registry) Redetour(name string) error {
	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return r.redetourLocked(e)
}

func (r *Registry) restoreLocked(e *entry) error {
	if !e.rec.Installed {
		return nil
	}
	if err := r.mem.Write(e.rec.Original, e.saved); err != nil {
		return hookErr(e.rec.Name).Code("HOOK_WRITE_FAILED").Wrap(err)
	}
	e.rec.Installed = false
	return nil
}

func (r *Registry) redetourLocked(e *entry) error {
	if e.rec.Installed {
		return nil
	}
	if err := r.mem.Write(e.rec.Original, e.patch); err != nil {
		return hookErr(e.rec.Name).Code("HOOK_WRITE_FAILED").Wrap(err)
	}
	e.rec.Installed = true
	return nil
}

// Lookup returns a snapshot of the named record.
func (r *Registry) Lookup(name string) (Record, bool) {
	e, err := r.lookup(name)
	if err != nil {
		return Record{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec, true
}

// Installed reports whether the named hook currently diverts calls.
func (r *Registry) Installed(name string) bool {
	rec, ok := r.Lookup(name)
	return ok && rec.Installed
}

// CallOriginal runs the unpatched function exactly once with interception
// suspended, and re-arms the hook afterwards even if the call panics.
func (r *Registry) CallOriginal(name string, args ...uintptr) (ret uintptr, err error) {
	s, err := r.Suspend(name)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := s.Resume(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return s.CallOriginal(args...), nil
}
