package llm

import "slices"

// Helpers for building the JSON schemas sent with each request. Strict
// structured output requires every property to be listed as required and
// additionalProperties to be false.

func Object(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	slices.Sort(required)

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func String(description string) map[string]any {
	return withDescription(map[string]any{"type": "string"}, description)
}

func Integer(description string) map[string]any {
	return withDescription(map[string]any{"type": "integer"}, description)
}

func Array(items map[string]any, description string) map[string]any {
	return withDescription(map[string]any{"type": "array", "items": items}, description)
}

func withDescription(schema map[string]any, description string) map[string]any {
	if description != "" {
		schema["description"] = description
	}
	return schema
}
