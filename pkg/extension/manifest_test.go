// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`{
	"Id": "SlotExtender",
	"DisplayName": "Slot Extender",
	"Author": "someone",
	"Version": "1.4.0",
	"Game": "Subnautica",
	"Dependencies": [],
	"AssemblyName": "SlotExtender.dll",
	"EntryMethod": "SlotExtender.Main.Load"
}`)

	m, err := ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "SlotExtender", m.ID)
	assert.Equal(t, "Slot Extender", m.DisplayName)
	assert.Equal(t, "1.4.0", m.Version)
	assert.Equal(t, "SlotExtender.dll", m.AssemblyName)
	assert.Equal(t, "SlotExtender.Main.Load", m.EntryMethod)
	assert.True(t, m.Enabled())
}

func TestParseManifestStripsBOM(t *testing.T) {
	data := append([]byte{0xef, 0xbb, 0xbf}, `{"AssemblyName":"A.dll"}`...)

	m, err := ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "A.dll", m.AssemblyName)
}

func TestParseManifestEnable(t *testing.T) {
	m, err := ParseManifest([]byte(`{"AssemblyName":"A.dll","Enable":false}`))
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	m, err = ParseManifest([]byte(`{"AssemblyName":"A.dll","Enable":true}`))
	require.NoError(t, err)
	assert.True(t, m.Enabled())
}

func TestParseManifestInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t"},
		{"truncated", `{"AssemblyName": "A.dll"`},
		{"not json", "AssemblyName: A.dll"},
		{"trailing data", `{"AssemblyName":"A.dll"} {}`},
		{"array root", `["A.dll"]`},
		{"entry method not a string", `{"AssemblyName":"A.dll","EntryMethod":5}`},
		{"enable not a bool", `{"AssemblyName":"A.dll","Enable":"no"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrInvalidManifest), "error %v should wrap ErrInvalidManifest", err)
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema struct {
		ID         string                     `json:"$id"`
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, SchemaID, schema.ID)
	assert.Equal(t, "object", schema.Type)
	for _, field := range []string{"Id", "DisplayName", "Author", "Version", "Enable", "AssemblyName", "EntryMethod"} {
		assert.Contains(t, schema.Properties, field)
	}
	assert.Empty(t, schema.Required)
}

func TestValidateSchemaAcceptsUnknownFields(t *testing.T) {
	doc := map[string]any{"AssemblyName": "A.dll", "LoadBefore": []any{"Other"}}
	assert.NoError(t, ValidateSchema(doc))
}
