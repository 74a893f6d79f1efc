// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build darwin

package symbols

const rtldNoload = 0x10

// findLoaded defers to dyld, which matches install names for RTLD_NOLOAD.
func findLoaded(name string) (string, bool) {
	return name, true
}
