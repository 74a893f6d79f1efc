// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build windows

package hook

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var procFlushInstructionCache = windows.NewLazySystemDLL("kernel32.dll").NewProc("FlushInstructionCache")

func writeCode(addr uintptr, b []byte) error {
	size := uintptr(len(b))

	var old uint32
	if err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return fmt.Errorf("unprotect 0x%x: %w", addr, err)
	}

	copy(code(addr, len(b)), b)

	var ignored uint32
	if err := windows.VirtualProtect(addr, size, old, &ignored); err != nil {
		return fmt.Errorf("reprotect 0x%x: %w", addr, err)
	}

	procFlushInstructionCache.Call(uintptr(windows.CurrentProcess()), addr, size)
	return nil
}
