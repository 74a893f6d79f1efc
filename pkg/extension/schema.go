// Copyright 2024-2026 Madhukar Beema, Distinguished Engineer. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

package extension

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaID is the $id of the generated manifest schema.
const SchemaID = "https://github.com/mbeema/modloader/schemas/mod.schema.json"

var compiled struct {
	once   sync.Once
	schema *jschema.Schema
	err    error
}

// GenerateSchema generates the JSON Schema for Manifest.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(&Manifest{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Extension Manifest"
	schema.Description = "Schema for mod.json extension manifests"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

func compiledSchema() (*jschema.Schema, error) {
	compiled.once.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compiled.err = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compiled.err = fmt.Errorf("parse schema: %w", err)
			return
		}

		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			compiled.err = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled.schema, compiled.err = c.Compile(SchemaID)
	})
	return compiled.schema, compiled.err
}

// ValidateSchema validates a decoded JSON document against the manifest
// schema.
func ValidateSchema(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
