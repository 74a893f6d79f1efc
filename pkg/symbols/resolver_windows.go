// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build windows

package symbols

import (
	"golang.org/x/sys/windows"
)

type nativeResolver struct{}

// Native returns the resolver backed by the Windows loader.
func Native() Resolver {
	return nativeResolver{}
}

// Lookup uses GetModuleHandleEx without touching the module refcount, so
// probing never keeps a module alive or loads one.
func (nativeResolver) Lookup(name string) (Module, bool) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, false
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, p, &h); err != nil {
		return 0, false
	}
	return Module(h), h != 0
}

func (nativeResolver) Resolve(m Module, symbol string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(m), symbol)
	if err != nil || addr == 0 {
		return 0, notFound(symbol, err)
	}
	return addr, nil
}
