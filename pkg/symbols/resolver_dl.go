// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux || darwin

package symbols

import (
	"github.com/ebitengine/purego"
)

// dlResolver resolves through dlopen/dlsym. find maps a module name to the
// path dlopen should be given.
type dlResolver struct {
	find func(name string) (string, bool)
}

// Native returns the resolver backed by the dynamic loader.
func Native() Resolver {
	return &dlResolver{find: findLoaded}
}

// Lookup opens the module with RTLD_NOLOAD, which only succeeds when the
// module is already mapped.
func (r *dlResolver) Lookup(name string) (Module, bool) {
	path, ok := r.find(name)
	if !ok {
		return 0, false
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|rtldNoload)
	if err != nil || h == 0 {
		return 0, false
	}
	return Module(h), true
}

func (r *dlResolver) Resolve(m Module, symbol string) (uintptr, error) {
	addr, err := purego.Dlsym(uintptr(m), symbol)
	if err != nil || addr == 0 {
		return 0, notFound(symbol, err)
	}
	return addr, nil
}
