// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

//go:build !windows && !linux && !darwin

package hook

import (
	"fmt"
	"runtime"
)

func writeCode(addr uintptr, _ []byte) error {
	return fmt.Errorf("patching 0x%x: code patching not supported on %s", addr, runtime.GOOS)
}
