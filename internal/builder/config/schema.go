package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema is the JSON Schema every configuration file must satisfy,
// regardless of its on-disk format.
const configSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"prefix":     {"type": "string"},
		"separator":  {"type": "string", "minLength": 1},
		"include":    {"type": "array", "items": {"type": "string"}},
		"exclude":    {"type": "array", "items": {"type": "string"}},
		"outDir":     {"type": "string"},
		"tokenFiles": {"type": "array", "items": {"type": "string"}},
		"tokens":     {"type": "object"}
	},
	"additionalProperties": false
}`

// Validate checks a parsed configuration map against the config schema.
func Validate(raw map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return &ValidationError{Problems: msgs}
}

// ValidationError reports one or more schema violations.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid config: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid config (%d problems): %s",
		len(e.Problems), strings.Join(e.Problems, "; "))
}
