package report

import (
	_ "embed"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed report.schema.json
var schemaJSON string

// Schema describes the document JSONWriter prints.
var Schema = jsonschema.MustCompileString("report.schema.json", schemaJSON)

// SchemaJSON returns the source of Schema.
func SchemaJSON() string {
	return schemaJSON
}

// Validate checks an encoded report against Schema.
func Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}
	if err := Schema.Validate(v); err != nil {
		return fmt.Errorf("report schema validation failed: %w", err)
	}
	return nil
}
