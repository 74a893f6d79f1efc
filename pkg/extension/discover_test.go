// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeExtension(t *testing.T, root, name, manifest string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if manifest != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mod.json"), []byte(manifest), 0o600))
	}
	return dir
}

func newTestDiscoverer(t *testing.T, disabled ...string) (*Discoverer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	d, err := NewDiscoverer("mod.json", disabled, zap.New(core))
	require.NoError(t, err)
	return d, logs
}

func names(seq func(func(*Descriptor) bool)) []string {
	var out []string
	for desc := range seq {
		out = append(out, desc.Name)
	}
	return out
}

func TestDiscoverLexicalOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zeta", "Alpha", "beta", "10-first"} {
		writeExtension(t, root, name, `{"AssemblyName":"M.dll","EntryMethod":"M.Main.Load"}`)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("not a dir"), 0o600))

	d, _ := newTestDiscoverer(t)
	assert.Equal(t, []string{"10-first", "Alpha", "beta", "zeta"}, names(d.Discover(root)))
}

func TestDiscoverDescriptor(t *testing.T) {
	root := t.TempDir()
	dir := writeExtension(t, root, "SlotExtender", `{
		"DisplayName": "Slot Extender",
		"AssemblyName": "bin/SlotExtender.dll",
		"EntryMethod": "SlotExtender.Main.Load"
	}`)

	d, _ := newTestDiscoverer(t)
	var got []*Descriptor
	for desc := range d.Discover(root) {
		got = append(got, desc)
	}

	require.Len(t, got, 1)
	desc := got[0]
	assert.Equal(t, "SlotExtender", desc.Name)
	assert.Equal(t, dir, desc.Dir)
	assert.Equal(t, filepath.Join(dir, "bin", "SlotExtender.dll"), desc.ModulePath)
	assert.True(t, filepath.IsAbs(desc.ModulePath))
	assert.Equal(t, "Slot Extender", desc.Manifest.DisplayName)
	require.NotNil(t, desc.Entry)
	assert.Equal(t, EntryPoint{Namespace: "SlotExtender", Class: "Main", Method: "Load"}, *desc.Entry)
}

func TestDiscoverYieldsManifestWithoutEntry(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "library", `{"AssemblyName":"Lib.dll"}`)

	d, _ := newTestDiscoverer(t)
	var got []*Descriptor
	for desc := range d.Discover(root) {
		got = append(got, desc)
	}

	require.Len(t, got, 1)
	assert.Nil(t, got[0].Entry)
}

func TestScanSkipReasons(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "a-valid", `{"AssemblyName":"A.dll","EntryMethod":"A.Main.Load"}`)
	writeExtension(t, root, "b-malformed", `{"AssemblyName":`)
	writeExtension(t, root, "c-no-assembly", `{"EntryMethod":"C.Main.Load"}`)
	writeExtension(t, root, "d-too-deep", `{"AssemblyName":"D.dll","EntryMethod":"Company.D.Mods.Main.Load"}`)
	writeExtension(t, root, "e-disabled", `{"AssemblyName":"E.dll","EntryMethod":"E.Main.Load","Enable":false}`)
	writeExtension(t, root, "f-no-manifest", "")
	writeExtension(t, root, "g-skipme", `{"AssemblyName":"G.dll","EntryMethod":"G.Main.Load"}`)

	d, logs := newTestDiscoverer(t, "*-skipme")

	reasons := make(map[string]error)
	var order []string
	for desc, err := range d.Scan(root) {
		order = append(order, desc.Name)
		reasons[desc.Name] = err
	}

	assert.Equal(t, []string{"a-valid", "b-malformed", "c-no-assembly", "d-too-deep", "e-disabled", "g-skipme"}, order)
	assert.NoError(t, reasons["a-valid"])
	assert.True(t, errors.Is(reasons["b-malformed"], ErrInvalidManifest))
	assert.True(t, errors.Is(reasons["c-no-assembly"], ErrNoAssembly))
	assert.True(t, errors.Is(reasons["d-too-deep"], ErrEntryTooDeep))
	assert.True(t, errors.Is(reasons["e-disabled"], ErrDisabled))
	assert.True(t, errors.Is(reasons["g-skipme"], ErrDisabled))

	for _, name := range []string{"b-malformed", "c-no-assembly", "d-too-deep", "e-disabled", "g-skipme"} {
		assert.Equal(t, 1, logs.FilterField(zap.String("extension", name)).Len(), "skip of %s should be logged once", name)
	}
	assert.Equal(t, 1, logs.FilterMessage("skipping directory without manifest").FilterLevelExact(zapcore.DebugLevel).Len())
}

func TestDiscoverSkipsBadExtensions(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "good", `{"AssemblyName":"A.dll","EntryMethod":"A.Main.Load"}`)
	writeExtension(t, root, "bad", `not json`)

	d, _ := newTestDiscoverer(t)
	assert.Equal(t, []string{"good"}, names(d.Discover(root)))
}

func TestDiscoverInvalidVersionIsWarningOnly(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "legacy", `{"AssemblyName":"L.dll","EntryMethod":"L.Main.Load","Version":"one point two"}`)

	d, logs := newTestDiscoverer(t)
	assert.Equal(t, []string{"legacy"}, names(d.Discover(root)))
	assert.Equal(t, 1, logs.FilterMessage("extension version is not semantic").Len())
}

func TestDiscoverStopsWhenConsumerStops(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeExtension(t, root, name, `{"AssemblyName":"M.dll","EntryMethod":"M.Main.Load"}`)
	}

	d, _ := newTestDiscoverer(t)
	var seen []string
	for desc := range d.Discover(root) {
		seen = append(seen, desc.Name)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestDiscoverMissingRoot(t *testing.T) {
	d, logs := newTestDiscoverer(t)
	assert.Empty(t, names(d.Discover(filepath.Join(t.TempDir(), "QMods"))))
	assert.Equal(t, 1, logs.FilterMessage("extensions directory unreadable").Len())
}

func TestDiscoverFollowsSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	target := writeExtension(t, t.TempDir(), "real", `{"AssemblyName":"R.dll","EntryMethod":"R.Main.Load"}`)
	if err := os.Symlink(target, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	d, _ := newTestDiscoverer(t)
	got := names(d.Discover(root))
	assert.True(t, slices.Equal([]string{"linked"}, got), "got %v", got)
}

func TestNewDiscovererRejectsBadPattern(t *testing.T) {
	_, err := NewDiscoverer("mod.json", []string{"[unterminated"}, zap.NewNop())
	assert.Error(t, err)
}
