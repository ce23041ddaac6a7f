package tatami

import (
	"encoding"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string                `json:"format,omitempty" yaml:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any                   `json:"default,omitempty" yaml:"default,omitempty"`
	Ref         string                `json:"$ref,omitempty" yaml:"$ref,omitempty"`

	// AdditionalProperties can be true (any) or a schema.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// schemaBuilder collects named struct schemas into a shared components
// section so each model type is defined once and referenced by $ref
// everywhere it appears.
type schemaBuilder struct {
	schemas map[string]JSONSchema
	// building guards against self-referential models recursing forever.
	building map[string]bool
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{
		schemas:  make(map[string]JSONSchema),
		building: make(map[string]bool),
	}
}

// typeToSchema converts a reflect.Type to a JSONSchema. Named struct
// types register under components and come back as a $ref.
func (sb *schemaBuilder) typeToSchema(t reflect.Type) JSONSchema {
	if t.Kind() == reflect.Pointer {
		return sb.typeToSchema(t.Elem())
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	case reflect.TypeFor[uuid.UUID]():
		return JSONSchema{Type: "string", Format: "uuid"}
	case reflect.TypeFor[decimal.Decimal]():
		return JSONSchema{Type: "number", Format: "double"}
	case reflect.TypeFor[Void]():
		return JSONSchema{}
	}
	if t.Implements(reflect.TypeFor[encoding.TextMarshaler]()) {
		return JSONSchema{Type: "string"}
	}

	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return JSONSchema{Type: "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", Format: "byte"}
		}
		items := sb.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := sb.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		valSchema := sb.typeToSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &valSchema}
	case reflect.Struct:
		if t.Name() != "" {
			return sb.refSchema(t)
		}
		return sb.structToSchema(t)
	case reflect.Interface:
		return JSONSchema{}
	default:
		return JSONSchema{}
	}
}

// refSchema registers a named struct under components and returns a
// reference to it. The same type always maps to the same name, so a
// model shared by several operations is defined once.
func (sb *schemaBuilder) refSchema(t reflect.Type) JSONSchema {
	name := t.Name()
	ref := JSONSchema{Ref: "#/components/schemas/" + name}
	if _, done := sb.schemas[name]; done || sb.building[name] {
		return ref
	}
	sb.building[name] = true
	sb.schemas[name] = sb.structToSchema(t)
	delete(sb.building, name)
	return ref
}

// structToSchema converts a struct type to an object schema with
// properties. Parameter-binding fields are not part of the body schema.
func (sb *schemaBuilder) structToSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if isParamField(f) {
			continue
		}
		if f.Type == reflect.TypeFor[RawRequest]() || f.Type == httpRequestType {
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := sb.typeToSchema(f.Type)
		if doc := f.Tag.Get("doc"); doc != "" {
			prop.Description = doc
		}
		if def := f.Tag.Get("default"); def != "" {
			prop.Default = def
		}
		schema.Properties[name] = prop

		if f.Type.Kind() != reflect.Pointer || f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}

	sort.Strings(schema.Required)
	return schema
}

// isParamField reports whether a struct field binds from somewhere
// other than the body.
func isParamField(f reflect.StructField) bool {
	for _, tag := range []string{"path", "query", "header", "inject"} {
		if _, ok := f.Tag.Lookup(tag); ok {
			return true
		}
	}
	return false
}

// paramSchema builds the schema for a single path/query/header
// parameter, carrying its default when one is declared.
func (sb *schemaBuilder) paramSchema(p paramSpec) JSONSchema {
	s := sb.typeToSchema(p.typ)
	if p.hasDefault {
		s.Default = p.defaultVal
	}
	return s
}
