// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package extension discovers extensions on disk and activates them inside
// the managed runtime.
package extension

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Manifest is the mod.json file at the root of each extension directory.
// Only AssemblyName and EntryMethod drive loading; the remaining fields are
// informational except Enable.
type Manifest struct {
	ID           string `json:"Id,omitempty" jsonschema:"description=Unique extension identifier"`
	DisplayName  string `json:"DisplayName,omitempty"`
	Author       string `json:"Author,omitempty"`
	Version      string `json:"Version,omitempty" jsonschema:"description=Semantic version of the extension"`
	Enable       *bool  `json:"Enable,omitempty" jsonschema:"description=Set to false to keep the extension from loading"`
	AssemblyName string `json:"AssemblyName,omitempty" jsonschema:"description=Managed module path relative to the extension directory"`
	EntryMethod  string `json:"EntryMethod,omitempty" jsonschema:"description=Dotted Namespace.Class.Method of a static zero-argument method"`
}

// ErrInvalidManifest is returned (wrapped) for manifests that are not valid
// JSON or do not match the manifest schema.
var ErrInvalidManifest = errors.New("invalid manifest")

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ParseManifest parses and validates a manifest document. Unknown fields
// are ignored.
func ParseManifest(data []byte) (*Manifest, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.In("extension").Code("MANIFEST_INVALID").Wrapf(ErrInvalidManifest, "manifest is empty")
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.In("extension").Code("MANIFEST_INVALID").
			With("cause", err.Error()).
			Wrapf(ErrInvalidManifest, "manifest is not valid JSON")
	}
	if err := ValidateSchema(doc); err != nil {
		return nil, oops.In("extension").Code("MANIFEST_INVALID").
			With("cause", err.Error()).
			Wrapf(ErrInvalidManifest, "manifest does not match schema")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, oops.In("extension").Code("MANIFEST_INVALID").
			With("cause", err.Error()).
			Wrapf(ErrInvalidManifest, "decode manifest")
	}
	return &m, nil
}

// Enabled reports whether the manifest allows loading. A missing Enable
// field means enabled.
func (m *Manifest) Enabled() bool {
	return m.Enable == nil || *m.Enable
}
