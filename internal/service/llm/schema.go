package llm

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into a JSON schema accepted by strict
// structured-output modes: every object closed and every property required.
func GenerateSchema[T any]() (map[string]interface{}, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	data, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	closeObjects(m)
	return m, nil
}

func closeObjects(schema map[string]interface{}) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		for _, prop := range props {
			if m, ok := prop.(map[string]interface{}); ok {
				closeObjects(m)
			}
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		closeObjects(items)
	}
}
