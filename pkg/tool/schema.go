package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// Schema is a minimal JSON schema for tool arguments: an object with
// typed properties and a required list. This covers what chat-completion
// tool declarations actually use.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes one argument.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ObjectSchema builds an object schema from properties and required names.
func ObjectSchema(props map[string]Property, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// Validate checks args against the schema: required fields must be
// present, and present fields must match their declared primitive type.
// Unknown fields are tolerated.
func (s *Schema) Validate(args map[string]any) error {
	if s == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	for _, name := range s.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidArguments, name)
		}
	}

	for name, value := range args {
		prop, ok := s.Properties[name]
		if !ok || prop.Type == "" {
			continue
		}
		if err := checkType(value, prop.Type); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidArguments, name, err)
		}
		if len(prop.Enum) > 0 {
			str, _ := value.(string)
			if !contains(prop.Enum, str) {
				return fmt.Errorf("%w: field %q: %q not in %v", ErrInvalidArguments, name, str, prop.Enum)
			}
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func checkType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	case "null":
		if value == nil {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s, got %T", expected, value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64, int, int32, int64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return math.Trunc(v) == v
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
