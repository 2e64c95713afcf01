package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildRecordJSONSchema returns the JSON-Schema for one exported line-item
// record. Responses are validated against it before leaving the process:
// a malformed record is a bug worth a 500, not something to hand to the
// finance importer.
func buildRecordJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"platform":    map[string]any{"type": "string", "enum": []string{"GoogleAds", "MetaAds", "TikTokAds", "Unknown"}},
			"invoiceId":   map[string]any{"type": "string"},
			"invoiceType": map[string]any{"type": "string", "enum": []string{"Attributed", "Plain", "Adjustment"}},
			"lineNumber":  map[string]any{"type": "integer", "minimum": 1},
			"amount":      map[string]any{"type": "string", "pattern": `^-?\d+\.\d{2}$`},
			"description": map[string]any{"type": "string"},
			"agency":      map[string]any{"type": "string"},
			"projectId":   map[string]any{"type": "string"},
			"projectName": map[string]any{"type": "string"},
			"objective":   map[string]any{"type": "string"},
			"period":      map[string]any{"type": "string"},
			"campaignId":  map[string]any{"type": "string"},
		},
		"required": []string{"platform", "invoiceId", "invoiceType", "lineNumber", "amount", "description"},
	}
}

// validateAgainstSchema validates data against schemaMap.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
