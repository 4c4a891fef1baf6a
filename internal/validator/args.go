// Package validator checks user tasks and model-supplied tool arguments.
package validator

import (
	"fmt"
	"math"
	"slices"

	"github.com/ashutoshrp06/taskloop/internal/types"
)

// ValidateArgs checks args against the declared parameter schema: required
// properties, primitive kinds, enums and array items. Unknown properties are
// allowed; models often add harmless extras.
func ValidateArgs(schema types.Schema, args map[string]any) error {
	if schema.Type == "" {
		return nil
	}
	return validateObject("", &schema, args)
}

func validateObject(path string, schema *types.Schema, args map[string]any) error {
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("missing required parameter: %s", join(path, name))
		}
	}
	for _, name := range schema.PropertyNames() {
		value, ok := args[name]
		if !ok || value == nil {
			continue
		}
		if err := validateValue(join(path, name), schema.Properties[name], value); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, schema *types.Schema, value any) error {
	switch schema.Type {
	case types.TypeString:
		s, ok := value.(string)
		if !ok {
			return typeError(path, schema.Type, value)
		}
		if len(schema.Enum) > 0 && !slices.Contains(schema.Enum, s) {
			return fmt.Errorf("invalid value for %s: must be one of %v", path, schema.Enum)
		}
	case types.TypeNumber:
		if _, ok := toFloat(value); !ok {
			return typeError(path, schema.Type, value)
		}
	case types.TypeInteger:
		f, ok := toFloat(value)
		if !ok || f != math.Trunc(f) {
			return typeError(path, schema.Type, value)
		}
	case types.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return typeError(path, schema.Type, value)
		}
	case types.TypeArray:
		items, ok := value.([]any)
		if !ok {
			return typeError(path, schema.Type, value)
		}
		if schema.Items != nil {
			for i, item := range items {
				if err := validateValue(fmt.Sprintf("%s[%d]", path, i), schema.Items, item); err != nil {
					return err
				}
			}
		}
	case types.TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return typeError(path, schema.Type, value)
		}
		return validateObject(path, schema, obj)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func typeError(path string, want types.SchemaType, got any) error {
	return fmt.Errorf("invalid type for %s: expected %s, got %T", path, want, got)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
