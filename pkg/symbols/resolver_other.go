// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !windows && !linux && !darwin

package symbols

import (
	"fmt"
	"runtime"
)

type unsupportedResolver struct{}

// Native returns a resolver that never finds a module on this platform.
func Native() Resolver {
	return unsupportedResolver{}
}

func (unsupportedResolver) Lookup(string) (Module, bool) { return 0, false }

func (unsupportedResolver) Resolve(_ Module, symbol string) (uintptr, error) {
	return 0, notFound(symbol, fmt.Errorf("symbol lookup not supported on %s", runtime.GOOS))
}
