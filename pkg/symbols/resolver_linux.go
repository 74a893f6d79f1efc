// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux

package symbols

import "os"

const rtldNoload = 0x4

// findLoaded scans our own mappings; dlopen with a bare name would search
// LD_LIBRARY_PATH and could name a different copy than the host mapped.
func findLoaded(name string) (string, bool) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return "", false
	}
	defer f.Close()
	return findMapping(f, name)
}
