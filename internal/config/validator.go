package config

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// schema describes the shape of cnext.config.json. It is compiled once at
// package init and reused for every Validate call; the SDK that exercises
// this schema for MCP tool definitions elsewhere in the ecosystem resolves
// schemas the same way, via Schema.Resolve followed by Resolved.Validate.
var schema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"includeDirs":  {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		"outDir":       {Type: "string"},
		"headerOutDir": {Type: "string"},
		"basePath":     {Type: "string"},
		"cppRequired":  {Type: "boolean"},
		"parseOnly":    {Type: "boolean"},
		"noCache":      {Type: "boolean"},
		"debugMode":    {Type: "boolean"},
		"target":       {Type: "string"},
		"preprocess":   {Type: "boolean"},
	},
	AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
}

var resolvedSchema *jsonschema.Resolved

func init() {
	r, err := schema.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("config: invalid built-in schema: %v", err))
	}
	resolvedSchema = r
}

// ValidateJSON checks raw cnext.config.json bytes against the option
// schema before they're unmarshalled into a Config, so a typo'd key or
// wrong-typed value is reported as a schema error instead of silently
// being ignored by encoding/json.
func ValidateJSON(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := resolvedSchema.Validate(instance); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
