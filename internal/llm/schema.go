package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// FieldMapSchema returns the JSON-Schema a model answer must satisfy.
// Keys are open-ended; strict mode also forbids nested values.
func FieldMapSchema(strict bool) map[string]any {
	s := map[string]any{
		"type": "object",
	}
	if strict {
		s["additionalProperties"] = map[string]any{
			"type": []string{"string", "number", "boolean", "null"},
		}
	}
	return s
}

// CompileSchema compiles schemaMap for repeated validation.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
