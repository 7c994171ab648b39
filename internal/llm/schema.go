package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildReservationJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass it to providers as a structured output constraint and
// also use it locally to validate the repaired response.
func BuildReservationJSONSchema(platforms []string) map[string]any {
	itemProps := map[string]any{
		"guest_name":    map[string]any{"type": "string", "minLength": 1},
		"property_name": map[string]any{"type": "string"},
		"checkin_date":  dateProp(),
		"checkout_date": dateProp(),
		"num_guests":    map[string]any{"type": "integer", "minimum": 1},
		"total_amount":  decimalProp(),
		"currency_code": map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
		"platform":      map[string]any{"type": "string"},
		"country":       map[string]any{"type": "string"},
		"notes":         map[string]any{"type": "string"},
		"confidence":    map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}

	// Constrain platform if a canonical set is provided.
	if len(platforms) > 0 {
		itemProps["platform"] = map[string]any{
			"type": "string",
			"enum": platforms,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"reservations": map[string]any{
				"type": "array",
				"items": map[string]any{
					// required-ness is the validation stage's concern: a
					// partial record still ships as a best-effort draft.
					"type":                 "object",
					"additionalProperties": false,
					"properties":           itemProps,
				},
			},
		},
		"required": []string{"reservations"},
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d+(\.\d{1,2})?$`, // non-negative amounts only
	}
}

// ValidateJSONAgainstSchema validates doc against the given schema map.
func ValidateJSONAgainstSchema(schema map[string]any, doc []byte) error {
	sb, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(sb)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
