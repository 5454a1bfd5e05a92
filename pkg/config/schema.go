package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse embedded schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("hk.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("register schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("hk.schema.json")
	})
	return schema, schemaErr
}

// ValidateSchema checks a raw YAML/JSON document against the embedded
// config schema before decoding into typed structs, so schema violations
// surface with keyword-level messages instead of decode errors.
func ValidateSchema(yamlData []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	var tree any
	if err := yaml.Unmarshal(yamlData, &tree); err != nil {
		return fmt.Errorf("parse config: %s", yaml.FormatError(err, false, true))
	}

	// Round-trip through encoding/json so the validator sees the value
	// shapes it expects.
	buf, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("normalize config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("normalize config: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
