package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const agentSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"role": {"type": "string"},
		"description": {"type": "string"},
		"model": {"type": "string"},
		"settings": {
			"type": "object",
			"properties": {
				"max_turns": {"type": "integer", "minimum": 0},
				"retry_count": {"type": "integer", "minimum": 0},
				"timeout_seconds": {"type": "integer", "minimum": 0}
			}
		}
	}
}`

const taskSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"prompt": {"type": "string"},
		"depends_on": {"type": "array", "items": {"type": "string"}},
		"priority": {"type": "integer"}
	}
}`

func validateAgentDefinition(data []byte) error {
	return validateAgainstSchema(agentSchema, data)
}

func validateTaskDefinition(data []byte) error {
	return validateAgainstSchema(taskSchema, data)
}

func validateAgainstSchema(schema string, data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	dataLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
