// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package hook

import (
	"encoding/binary"
	"fmt"
	"runtime"
)

// Arch encodes the jump written over a hooked prologue.
type Arch interface {
	Name() string
	// JumpSize is the number of prologue bytes the jump overwrites.
	JumpSize() int
	// Jump returns the stub placed at from that transfers control to to.
	Jump(from, to uintptr) []byte
}

type amd64Arch struct{}

// AMD64 patches with an absolute indirect jump:
//
//	ff 25 00 00 00 00   jmp qword ptr [rip+0]
//	<8 byte target>
//
// It needs no scratch register and reaches any address, at the cost of 14
// prologue bytes.
var AMD64 Arch = amd64Arch{}

func (amd64Arch) Name() string  { return "amd64" }
func (amd64Arch) JumpSize() int { return 14 }

func (amd64Arch) Jump(_, to uintptr) []byte {
	b := make([]byte, 14)
	b[0], b[1] = 0xff, 0x25
	binary.LittleEndian.PutUint64(b[6:], uint64(to))
	return b
}

// NativeArch returns the Arch for the running process.
func NativeArch() (Arch, error) {
	switch runtime.GOARCH {
	case "amd64":
		return AMD64, nil
	default:
		return nil, fmt.Errorf("hooking not supported on %s", runtime.GOARCH)
	}
}
