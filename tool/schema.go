package tool

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// ValidationError reports a single argument that failed schema validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Message)
}

// SchemaFor derives a JSON schema object from a struct's exported fields.
// Property names follow the json tag and a `description` tag becomes the
// property description. Pointer and omitempty fields are optional; every
// other exported field is required. Non-struct values yield an empty
// object schema.
//
// The engine's tools only ever declare flat argument objects, so nested
// structs are described as plain "object" properties without recursing.
func SchemaFor(v any) map[string]any {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	properties := map[string]any{}
	var required []any
	if t != nil && t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name, optional, ok := argName(f)
			if !ok {
				continue
			}
			prop := map[string]any{"type": schemaType(f.Type)}
			if d := f.Tag.Get("description"); d != "" {
				prop["description"] = d
			}
			properties[name] = prop
			if !optional {
				required = append(required, name)
			}
		}
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// argName resolves the property name for a struct field and whether the
// argument is optional. The second value is false for unexported or
// json-skipped fields.
func argName(f reflect.StructField) (name string, optional, ok bool) {
	if !f.IsExported() {
		return "", false, false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}
	name = f.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	optional = f.Type.Kind() == reflect.Pointer
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "omitempty" {
			optional = true
		}
	}
	return name, optional, true
}

func schemaType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return schemaType(t.Elem())
	case reflect.Bool:
		return "boolean"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}

// ValidateArgs checks a decoded argument map against a schema, whether it
// came from SchemaFor or was declared by hand. Missing required arguments
// and type mismatches fail with a *ValidationError; arguments the schema
// does not describe pass through untouched, since model vendors may attach
// extra fields.
func ValidateArgs(args, schema map[string]any) error {
	for _, name := range requiredArgs(schema) {
		if _, ok := args[name]; !ok {
			return &ValidationError{Field: name, Message: "required argument is missing"}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range args {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		typ, _ := prop["type"].(string)
		if typ == "" || value == nil {
			continue
		}
		if !argMatches(value, typ) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected %s, got %T", typ, value),
			}
		}
	}
	return nil
}

// requiredArgs accepts both the []any form used by hand-written schemas
// (the shape json.Unmarshal produces) and the []string form.
func requiredArgs(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// argMatches reports whether a decoded JSON value satisfies a schema type.
// JSON numbers decode as float64, so "integer" accepts a whole float64.
func argMatches(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		if f, ok := value.(float64); ok {
			return f == math.Trunc(f)
		}
		return isGoInteger(value)
	case "number":
		switch value.(type) {
		case float32, float64:
			return true
		}
		return isGoInteger(value)
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	// unrecognized types (vendor extensions) are not validated
	return true
}

func isGoInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
