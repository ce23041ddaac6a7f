package tatami

import (
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// serializable converts a handler result into a tree of plain values
// (maps, slices, scalars) safe to hand to any encoder. Reference cycles
// through pointers, maps, and slices are cut with null rather than
// recursing forever; the visited set lives only for the duration of one
// call, so a value shared between two siblings still serializes in both
// places.
func serializable(v any) any {
	if v == nil {
		return nil
	}
	visited := make(map[visitKey]struct{})
	return serializeValue(reflect.ValueOf(v), visited)
}

// visitKey identifies a container by address and type. The type is part
// of the key so a struct and its first field, which share an address,
// do not alias.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

func serializeValue(v reflect.Value, visited map[visitKey]struct{}) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return serializeValue(v.Elem(), visited)

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := visited[key]; seen {
			return nil
		}
		visited[key] = struct{}{}
		out := serializeValue(v.Elem(), visited)
		delete(visited, key)
		return out
	}

	// Named wire scalars need handling before the kind switch (Duration
	// is an int64, UUID a byte array). Decimals go out as floating
	// point, which loses precision beyond float64.
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case time.Time:
			return x.Format(time.RFC3339Nano)
		case time.Duration:
			return x.String()
		case uuid.UUID:
			return x.String()
		case decimal.Decimal:
			return x.InexactFloat64()
		}
	}

	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := visited[key]; seen {
			return nil
		}
		visited[key] = struct{}{}
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			m[mapKeyString(iter.Key())] = serializeValue(iter.Value(), visited)
		}
		delete(visited, key)
		return m

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes()
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if _, seen := visited[key]; seen {
			return nil
		}
		visited[key] = struct{}{}
		out := serializeSeq(v, visited)
		delete(visited, key)
		return out

	case reflect.Array:
		return serializeSeq(v, visited)

	case reflect.Struct:
		return serializeStruct(v, visited)

	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return nil
}

func serializeSeq(v reflect.Value, visited map[visitKey]struct{}) []any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = serializeValue(v.Index(i), visited)
	}
	return out
}

func serializeStruct(v reflect.Value, visited map[visitKey]struct{}) any {
	switch t := v.Interface().(type) {
	case json.Marshaler:
		raw, err := t.MarshalJSON()
		if err != nil {
			return nil
		}
		var out any
		if json.Unmarshal(raw, &out) != nil {
			return nil
		}
		return out
	case encoding.TextMarshaler:
		raw, err := t.MarshalText()
		if err != nil {
			return nil
		}
		return string(raw)
	}

	t := v.Type()
	m := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			// Embedded struct fields flatten into the parent, matching
			// encoding/json.
			if inner, ok := serializeValue(v.Field(i), visited).(map[string]any); ok {
				for k, val := range inner {
					if _, exists := m[k]; !exists {
						m[k] = val
					}
				}
			}
			continue
		}
		name, omitempty, skip := jsonFieldInfo(f)
		if skip {
			continue
		}
		fv := v.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		m[name] = serializeValue(fv, visited)
	}
	return m
}

// jsonFieldInfo resolves a struct field's wire name from its json tag,
// defaulting to the Go field name.
func jsonFieldInfo(f reflect.StructField) (name string, omitempty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	if tag != "" {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitempty = true
			}
		}
	}
	return name, omitempty, false
}

func mapKeyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if raw, err := tm.MarshalText(); err == nil {
			return string(raw)
		}
	}
	raw, err := json.Marshal(serializeValue(k, make(map[visitKey]struct{})))
	if err != nil {
		return ""
	}
	return strings.Trim(string(raw), `"`)
}
