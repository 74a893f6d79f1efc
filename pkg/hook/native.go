// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package hook

import (
	"github.com/ebitengine/purego"
)

// NativeCall calls fn with the C calling convention of the platform.
func NativeCall(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

// NewNativeRegistry patches this process's own code.
func NewNativeRegistry() (*Registry, error) {
	arch, err := NativeArch()
	if err != nil {
		return nil, err
	}
	return NewRegistry(NativeMemory(), arch, NativeCall), nil
}
