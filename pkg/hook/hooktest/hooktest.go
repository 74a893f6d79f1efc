// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package hooktest simulates patchable code for testing hook users.
package hooktest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/mbeema/modloader/pkg/hook"
)

// Memory is a writable code region filled with NOPs.
type Memory struct {
	mu     sync.Mutex
	base   uintptr
	buf    []byte
	fail   bool
	writes int
}

var _ hook.Memory = (*Memory)(nil)

// NewMemory creates a region of size bytes at base.
func NewMemory(base uintptr, size int) *Memory {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x90
	}
	return &Memory{base: base, buf: buf}
}

// Contains reports whether addr lies inside the region.
func (m *Memory) Contains(addr uintptr) bool {
	return addr >= m.base && addr < m.base+uintptr(len(m.buf))
}

func (m *Memory) Read(addr uintptr, n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Contains(addr) || !m.Contains(addr+uintptr(n)-1) {
		return nil, fmt.Errorf("read outside region: 0x%x", addr)
	}
	off := addr - m.base
	return append([]byte(nil), m.buf[off:off+uintptr(n)]...), nil
}

func (m *Memory) Write(addr uintptr, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("write protected")
	}
	if !m.Contains(addr) || !m.Contains(addr+uintptr(len(b))-1) {
		return fmt.Errorf("write outside region: 0x%x", addr)
	}
	m.writes++
	copy(m.buf[addr-m.base:], b)
	return nil
}

// FailWrites makes every Write fail until called again with false.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Writes returns the number of successful writes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Proc executes calls against Memory: a call to an address holding an
// amd64 jump stub follows the stub, any other address runs the Go function
// defined for it.
type Proc struct {
	mem *Memory

	mu    sync.RWMutex
	funcs map[uintptr]func(args ...uintptr) uintptr
}

// NewProc creates a Proc over mem.
func NewProc(mem *Memory) *Proc {
	return &Proc{mem: mem, funcs: make(map[uintptr]func(args ...uintptr) uintptr)}
}

// Define places fn at addr.
func (p *Proc) Define(addr uintptr, fn func(args ...uintptr) uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.funcs[addr] = fn
}

// Call is a hook.Caller.
func (p *Proc) Call(fn uintptr, args ...uintptr) uintptr {
	if p.mem.Contains(fn) {
		b, err := p.mem.Read(fn, hook.AMD64.JumpSize())
		if err == nil && b[0] == 0xff && b[1] == 0x25 {
			return p.Call(uintptr(binary.LittleEndian.Uint64(b[6:])), args...)
		}
	}

	p.mu.RLock()
	impl, ok := p.funcs[fn]
	p.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("no code at 0x%x", fn))
	}
	return impl(args...)
}

// Registry returns a hook registry patching mem and calling through p.
func (p *Proc) Registry() *hook.Registry {
	return hook.NewRegistry(p.mem, hook.AMD64, p.Call)
}
