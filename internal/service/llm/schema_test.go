package llm

import (
	"sort"
	"testing"
)

type sampleOutput struct {
	Title string   `json:"title" jsonschema:"required"`
	Notes []string `json:"notes" jsonschema:"required"`
	Inner struct {
		Score int `json:"score"`
	} `json:"inner"`
}

func TestGenerateSchemaClosesObjects(t *testing.T) {
	schema, err := GenerateSchema[sampleOutput]()
	if err != nil {
		t.Fatalf("GenerateSchema() error = %v", err)
	}

	if schema["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", schema["additionalProperties"])
	}

	required, ok := schema["required"].([]string)
	if !ok {
		t.Fatalf("required = %T, want []string", schema["required"])
	}
	sort.Strings(required)
	if len(required) != 3 || required[0] != "inner" || required[1] != "notes" || required[2] != "title" {
		t.Errorf("required = %v, want all three properties", required)
	}

	props := schema["properties"].(map[string]interface{})
	inner := props["inner"].(map[string]interface{})
	if inner["additionalProperties"] != false {
		t.Errorf("nested additionalProperties = %v, want false", inner["additionalProperties"])
	}
}
