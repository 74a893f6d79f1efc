// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package symbols

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeResolver maps module names to handles and symbols to addresses.
// A module becomes visible after mapAfter lookups.
type fakeResolver struct {
	mu       sync.Mutex
	modules  map[string]Module
	symbols  map[string]uintptr
	mapAfter int
	lookups  int
}

func (f *fakeResolver) Lookup(name string) (Module, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookups <= f.mapAfter {
		return 0, false
	}
	m, ok := f.modules[name]
	return m, ok
}

func (f *fakeResolver) Resolve(m Module, symbol string) (uintptr, error) {
	if addr, ok := f.symbols[symbol]; ok {
		return addr, nil
	}
	return 0, notFound(symbol, nil)
}

func TestWaitForModuleReturnsFirstMappedCandidate(t *testing.T) {
	r := &fakeResolver{
		modules:  map[string]Module{"libmono.so": 0x1000},
		mapAfter: 3,
	}

	name, m, err := WaitForModule(context.Background(), r, []string{"mono.dll", "libmono.so"}, 10*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("WaitForModule: %v", err)
	}
	if name != "libmono.so" {
		t.Errorf("name = %q, want libmono.so", name)
	}
	if m != 0x1000 {
		t.Errorf("module = %v, want 0x1000", m)
	}
	if r.lookups < 4 {
		t.Errorf("lookups = %d, expected polling before the module appeared", r.lookups)
	}
}

func TestWaitForModuleStopsOnContextCancel(t *testing.T) {
	r := &fakeResolver{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := WaitForModule(ctx, r, []string{"mono.dll"}, 10*time.Millisecond, zap.NewNop())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestResolveAllReportsEveryMissingSymbol(t *testing.T) {
	r := &fakeResolver{symbols: map[string]uintptr{"mono_domain_get": 0x10}}

	_, err := ResolveAll(r, 1, []string{"mono_domain_get", "mono_runtime_invoke", "mono_assembly_foreach"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error should wrap ErrNotFound: %v", err)
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("error = %q, want count of missing symbols", err)
	}
}

func TestResolveAll(t *testing.T) {
	r := &fakeResolver{symbols: map[string]uintptr{"a": 1, "b": 2}}

	addrs, err := ResolveAll(r, 1, []string{"a", "b"})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if addrs["a"] != 1 || addrs["b"] != 2 {
		t.Errorf("addrs = %v", addrs)
	}
}

func TestParseMapsLine(t *testing.T) {
	m := parseMapsLine("7f1c2a000000-7f1c2a200000 r-xp 00000000 08:01 131 /opt/game/Game_Data/Mono/libmono.so.1")
	if m == nil {
		t.Fatal("expected mapping")
	}
	if m.Perms != "r-xp" {
		t.Errorf("Perms = %q, want r-xp", m.Perms)
	}
	if m.Path != "/opt/game/Game_Data/Mono/libmono.so.1" {
		t.Errorf("Path = %q", m.Path)
	}

	if parseMapsLine("7f1c2a000000-7f1c2a200000 rw-p 00000000 00:00 0") != nil {
		t.Error("anonymous mapping should not parse")
	}
	if parseMapsLine("garbage") != nil {
		t.Error("garbage should not parse")
	}
}

func TestFindMapping(t *testing.T) {
	maps := strings.Join([]string{
		"55d0c0000000-55d0c0100000 r--p 00000000 08:01 10 /opt/game/Game.x86_64",
		"7f0000000000-7f0000100000 r--p 00000000 08:01 20 /opt/My Game/libmono.so",
		"7f0000100000-7f0000300000 r-xp 00100000 08:01 20 /opt/My Game/libmono.so",
		"7f0000400000-7f0000500000 r-xp 00000000 08:01 30 /usr/lib/libmonosgen-2.0.so",
		"7ffd00000000-7ffd00001000 r-xp 00000000 00:00 0 [vdso]",
	}, "\n")

	path, ok := findMapping(strings.NewReader(maps), "libmono.so")
	if !ok {
		t.Fatal("libmono.so not found")
	}
	if path != "/opt/My Game/libmono.so" {
		t.Errorf("path = %q", path)
	}

	if _, ok := findMapping(strings.NewReader(maps), "mono.dll"); ok {
		t.Error("mono.dll should not match")
	}
	if _, ok := findMapping(strings.NewReader(maps), "libmonosgen"); ok {
		t.Error("partial base names should not match")
	}
}
