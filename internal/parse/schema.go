package parse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/casefile/internal/model"
)

// ValidationError reports normalized fields that fail the case schema
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// caseSchema bounds the normalized fields. null is always allowed.
var caseSchema = map[string]any{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"properties": map[string]any{
		model.FieldDistrict:   map[string]any{"type": []string{"string", "null"}, "maxLength": 200},
		model.FieldCity:       map[string]any{"type": []string{"string", "null"}, "maxLength": 200},
		model.FieldYear:       map[string]any{"type": []string{"integer", "null"}, "minimum": 1900, "maximum": 2100},
		model.FieldMonth:      map[string]any{"type": []string{"integer", "null"}, "minimum": 1, "maximum": 12},
		model.FieldOccurrence: map[string]any{"type": []string{"string", "null"}, "maxLength": 2000},
	},
	"required": model.CanonicalFields,
}

// SchemaValidator checks normalized case fields against a compiled JSON schema
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles the case schema
func NewSchemaValidator() (*SchemaValidator, error) {
	return newSchemaValidator(caseSchema)
}

func newSchemaValidator(schemaMap map[string]any) (*SchemaValidator, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("case.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("case.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate returns a *ValidationError when fields do not match the schema
func (v *SchemaValidator) Validate(fields model.CaseFields) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
