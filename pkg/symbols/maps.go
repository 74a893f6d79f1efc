// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package symbols

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"
)

// mapping is one line of /proc/<pid>/maps.
type mapping struct {
	Perms string
	Path  string
}

// parseMapsLine parses a line from /proc/pid/maps.
// Format: start-end perms offset dev inode pathname
func parseMapsLine(line string) *mapping {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return nil
	}
	if !strings.Contains(fields[0], "-") {
		return nil
	}
	return &mapping{
		Perms: fields[1],
		// Paths may contain spaces; rejoin everything after the inode.
		Path: strings.Join(fields[5:], " "),
	}
}

// findMapping returns the path of the first executable mapping whose base
// name is name or a versioned form of it (libmono.so matches libmono.so.1).
func findMapping(r io.Reader, name string) (string, bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := parseMapsLine(scanner.Text())
		if m == nil || len(m.Perms) < 3 || m.Perms[2] != 'x' {
			continue
		}
		if !strings.HasPrefix(m.Path, "/") {
			continue
		}
		base := filepath.Base(m.Path)
		if base == name || strings.HasPrefix(base, name+".") {
			return m.Path, true
		}
	}
	return "", false
}
