package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSON represents a JSON Schema definition node.
// It provides a structured way to declare the shape of model output.
type JSON struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  map[string]JSON `json:"properties,omitempty"`
	Required    []string        `json:"required,omitempty"`
	Items       *JSON           `json:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
}

// String creates a JSON schema for a string type.
func String() JSON {
	return JSON{Type: "string"}
}

// StringWithDesc creates a JSON schema for a string type with a description.
func StringWithDesc(desc string) JSON {
	return JSON{Type: "string", Description: desc}
}

// Int creates a JSON schema for an integer type.
func Int() JSON {
	return JSON{Type: "integer"}
}

// Number creates a JSON schema for a number type.
func Number() JSON {
	return JSON{Type: "number"}
}

// Bool creates a JSON schema for a boolean type.
func Bool() JSON {
	return JSON{Type: "boolean"}
}

// BoolWithDesc creates a JSON schema for a boolean type with a description.
func BoolWithDesc(desc string) JSON {
	return JSON{Type: "boolean", Description: desc}
}

// Array creates a JSON schema for an array type with the specified item schema.
func Array(items JSON) JSON {
	return JSON{Type: "array", Items: &items}
}

// Object creates a JSON schema for an object type with the specified
// properties and required fields.
func Object(properties map[string]JSON, required ...string) JSON {
	return JSON{Type: "object", Properties: properties, Required: required}
}

// Enum creates a JSON schema with enumerated values.
func Enum(values ...any) JSON {
	return JSON{Enum: values}
}

// Schema is a named structured-output contract requested from a model.
// The name participates in the completion cache key; the root node is sent
// to the provider and used to validate whatever comes back.
type Schema struct {
	// Name identifies the schema. It must be non-empty; two requests that
	// differ only in schema name cache separately.
	Name string

	// Root is the top-level schema node, typically an Object.
	Root JSON
}

// New creates a named schema from a root node.
func New(name string, root JSON) *Schema {
	return &Schema{Name: name, Root: root}
}

// MarshalJSON encodes the root node, so a Schema can be embedded directly
// in a provider request body.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Root)
}

// Validate checks raw JSON data against the schema.
// It returns nil when data conforms, and an error listing every violation
// otherwise.
func (s *Schema) Validate(data []byte) error {
	root, err := json.Marshal(s.Root)
	if err != nil {
		return fmt.Errorf("failed to encode schema %q: %w", s.Name, err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(root)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema %q validation failed: %w", s.Name, err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("schema %q violated: %s", s.Name, strings.Join(problems, "; "))
	}
	return nil
}
