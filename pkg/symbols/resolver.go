// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package symbols finds native modules already mapped into the process and
// resolves exported functions in them by name.
package symbols

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/oops"
)

// Module is an OS handle for a mapped module (HMODULE or dlopen handle).
type Module uintptr

// Resolver looks up mapped modules and their exports. Lookups have no side
// effects on the module's load state.
type Resolver interface {
	// Lookup reports whether the named module is currently mapped.
	Lookup(name string) (Module, bool)

	// Resolve returns the address of an exported symbol.
	Resolve(m Module, symbol string) (uintptr, error)
}

// ErrNotFound is returned (wrapped) when a symbol has no export.
var ErrNotFound = errors.New("symbol not found")

func notFound(symbol string, cause error) error {
	b := oops.In("symbols").Code("SYMBOL_NOT_FOUND").With("symbol", symbol)
	if cause != nil {
		b = b.With("cause", cause.Error())
	}
	return b.Wrap(ErrNotFound)
}

// ResolveAll resolves every name and reports all missing symbols at once.
func ResolveAll(r Resolver, m Module, names []string) (map[string]uintptr, error) {
	addrs := make(map[string]uintptr, len(names))
	var missing []string

	for _, name := range names {
		addr, err := r.Resolve(m, name)
		if err != nil || addr == 0 {
			missing = append(missing, name)
			continue
		}
		addrs[name] = addr
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, oops.In("symbols").
			Code("SYMBOL_NOT_FOUND").
			With("missing", missing).
			Wrapf(ErrNotFound, "%d of %d symbols unresolved", len(missing), len(names))
	}
	return addrs, nil
}

// String formats a module handle for logs.
func (m Module) String() string {
	return fmt.Sprintf("0x%x", uintptr(m))
}
