// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package hook

import (
	"unsafe"
)

// Memory reads and patches code in the current process.
type Memory interface {
	Read(addr uintptr, n int) ([]byte, error)
	// Write copies b to addr, lifting page protection for the duration.
	Write(addr uintptr, b []byte) error
}

type nativeMemory struct{}

// NativeMemory accesses the process's own address space directly.
func NativeMemory() Memory {
	return nativeMemory{}
}

func (nativeMemory) Read(addr uintptr, n int) ([]byte, error) {
	out := make([]byte, n)
	copy(out, code(addr, n))
	return out, nil
}

func (nativeMemory) Write(addr uintptr, b []byte) error {
	return writeCode(addr, b)
}

// code views n bytes at addr. addr must come from the loader (a resolved
// export), never from Go-managed memory.
func code(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
