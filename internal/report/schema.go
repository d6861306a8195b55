package report

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of a payload type, inlined without $ref so
// presentation code can consume it directly.
func Schema(payload any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(payload)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// Schemas returns the schemas of both payloads keyed by payload name.
func Schemas() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, 2)
	for name, payload := range map[string]any{
		"symbols": &SymbolsPayload{},
		"graph":   &GraphPayload{},
	} {
		data, err := Schema(payload)
		if err != nil {
			return nil, fmt.Errorf("%s schema: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}
