package types

import (
	"errors"
	"fmt"
	"sort"
)

// SchemaType is the primitive kind of a schema node.
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
)

// Valid reports whether t is one of the supported kinds.
func (t SchemaType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// Schema describes accepted tool arguments in a JSON-Schema-like form.
type Schema struct {
	Type        SchemaType         `json:"type" yaml:"type"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty" yaml:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string           `json:"required,omitempty" yaml:"required,omitempty"`
}

// ToolDeclaration is what the model sees about a tool.
type ToolDeclaration struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Parameters  Schema `json:"parameters" yaml:"parameters"`
}

// Validate checks the declaration and its parameter schema.
func (d ToolDeclaration) Validate() error {
	if d.Name == "" {
		return errors.New("tool name is empty")
	}
	if d.Parameters.Type == "" {
		return nil
	}
	if d.Parameters.Type != TypeObject {
		return fmt.Errorf("tool %s: parameters must be an object, got %s", d.Name, d.Parameters.Type)
	}
	if err := d.Parameters.Validate(); err != nil {
		return fmt.Errorf("tool %s: %w", d.Name, err)
	}
	return nil
}

// Validate checks the schema node recursively.
func (s *Schema) Validate() error {
	return s.validate("parameters")
}

func (s *Schema) validate(path string) error {
	if !s.Type.Valid() {
		return fmt.Errorf("%s: unsupported type %q", path, s.Type)
	}
	if len(s.Enum) > 0 && s.Type != TypeString {
		return fmt.Errorf("%s: enum is only supported on strings", path)
	}
	if s.Type == TypeArray {
		if s.Items == nil {
			return fmt.Errorf("%s: array without items", path)
		}
		if err := s.Items.validate(path + "[]"); err != nil {
			return err
		}
	}
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			return fmt.Errorf("%s: required property %q is not declared", path, name)
		}
	}
	for _, name := range s.PropertyNames() {
		if err := s.Properties[name].validate(path + "." + name); err != nil {
			return err
		}
	}
	return nil
}

// PropertyNames returns the property names in stable order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether name is in the required set.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
