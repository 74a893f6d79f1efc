// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

// Skip reasons reported by Scan.
var (
	ErrNoManifest = errors.New("no manifest")
	ErrDisabled   = errors.New("extension disabled")
	ErrNoAssembly = errors.New("manifest has no AssemblyName")
)

// Descriptor is a discovered extension ready for activation.
type Descriptor struct {
	Name       string // extension directory name
	Dir        string
	Manifest   *Manifest
	ModulePath string      // absolute path of the managed module
	Entry      *EntryPoint // nil when the manifest declares no entry method
}

// Discoverer finds extensions in the immediate subdirectories of a root.
type Discoverer struct {
	manifest string
	disabled []glob.Glob
	logger   *zap.Logger
}

// NewDiscoverer creates a Discoverer reading manifestName in each
// extension directory and skipping directories matching any of the
// disabled glob patterns.
func NewDiscoverer(manifestName string, disabled []string, logger *zap.Logger) (*Discoverer, error) {
	d := &Discoverer{manifest: manifestName, logger: logger}
	for _, p := range disabled {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile disabled pattern %q: %w", p, err)
		}
		d.disabled = append(d.disabled, g)
	}
	return d, nil
}

// Discover yields the loadable extensions under root in lexical order of
// directory name. Skipped directories are logged, not yielded.
func (d *Discoverer) Discover(root string) iter.Seq[*Descriptor] {
	return func(yield func(*Descriptor) bool) {
		for desc, err := range d.Scan(root) {
			if err != nil {
				continue
			}
			if !yield(desc) {
				return
			}
		}
	}
}

// Scan is Discover including skipped extensions. A skipped extension is
// yielded with a Descriptor carrying only Name and Dir, and the reason.
// Directories without a manifest are not extensions and are not yielded.
func (d *Discoverer) Scan(root string) iter.Seq2[*Descriptor, error] {
	return func(yield func(*Descriptor, error) bool) {
		entries, err := os.ReadDir(root)
		if err != nil {
			d.logger.Warn("extensions directory unreadable", zap.String("dir", root), zap.Error(err))
			return
		}

		for _, entry := range entries {
			dir := filepath.Join(root, entry.Name())
			if !isDir(entry, dir) {
				continue
			}

			desc, err := d.describe(entry.Name(), dir)
			switch {
			case errors.Is(err, ErrNoManifest):
				d.logger.Debug("skipping directory without manifest", zap.String("dir", dir))
				continue
			case errors.Is(err, ErrDisabled):
				d.logger.Info("skipping disabled extension", zap.String("extension", entry.Name()))
			case err != nil:
				d.logger.Warn("skipping extension", zap.String("extension", entry.Name()), zap.Error(err))
			}
			if err != nil {
				desc = &Descriptor{Name: entry.Name(), Dir: dir}
			}
			if !yield(desc, err) {
				return
			}
		}
	}
}

func isDir(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
	return entry.IsDir()
}

func (d *Discoverer) describe(name, dir string) (*Descriptor, error) {
	errb := oops.In("extension").With("extension", name)

	for _, g := range d.disabled {
		if g.Match(name) {
			return nil, errb.Code("EXTENSION_DISABLED").Wrapf(ErrDisabled, "matched disabled pattern")
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, d.manifest))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoManifest
	}
	if err != nil {
		return nil, errb.Code("MANIFEST_UNREADABLE").Wrapf(err, "read %s", d.manifest)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, errb.Wrap(err)
	}
	if !m.Enabled() {
		return nil, errb.Code("EXTENSION_DISABLED").Wrapf(ErrDisabled, "Enable is false")
	}
	if m.AssemblyName == "" {
		return nil, errb.Code("MANIFEST_NO_ASSEMBLY").Wrap(ErrNoAssembly)
	}

	modulePath := m.AssemblyName
	if !filepath.IsAbs(modulePath) {
		modulePath = filepath.Join(dir, modulePath)
	}
	if modulePath, err = filepath.Abs(modulePath); err != nil {
		return nil, errb.Code("MODULE_PATH_INVALID").Wrapf(err, "resolve %s", m.AssemblyName)
	}

	desc := &Descriptor{Name: name, Dir: dir, Manifest: m, ModulePath: modulePath}
	if m.EntryMethod != "" {
		ep, err := SplitEntryMethod(m.EntryMethod)
		if err != nil {
			return nil, errb.Wrap(err)
		}
		desc.Entry = &ep
	}

	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			d.logger.Warn("extension version is not semantic",
				zap.String("extension", name),
				zap.String("version", m.Version),
			)
		}
	}
	return desc, nil
}
