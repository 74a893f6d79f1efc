// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build linux || darwin

package hook

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// writeCode flips the covering pages to RWX, copies, and drops write access
// again. Code pages are assumed to be r-x before the patch; hardened
// darwin processes refuse RWX and the write fails cleanly.
func writeCode(addr uintptr, b []byte) error {
	pageSize := uintptr(unix.Getpagesize())
	start := addr &^ (pageSize - 1)
	end := (addr + uintptr(len(b)) + pageSize - 1) &^ (pageSize - 1)
	pages := code(start, int(end-start))

	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("unprotect 0x%x: %w", addr, err)
	}

	copy(code(addr, len(b)), b)

	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("reprotect 0x%x: %w", addr, err)
	}
	return nil
}
