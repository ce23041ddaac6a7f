package tatami

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldError describes a single parameter validation failure. It is the
// unit collected by the dispatcher and reported on the wire inside a
// problem details response.
type FieldError struct {
	Field        string   `json:"field"`
	FieldPath    []string `json:"field_path"`
	InputValue   any      `json:"input_value"`
	ExpectedType string   `json:"expected_type"`
	Message      string   `json:"message"`
}

func (e *FieldError) Error() string { return e.Message }

func fieldErrorf(field string, value any, expected reflect.Type, format string, args ...any) *FieldError {
	expectedName := "unknown"
	if expected != nil {
		expectedName = expected.String()
	}
	return &FieldError{
		Field:        field,
		FieldPath:    strings.Split(field, "."),
		InputValue:   value,
		ExpectedType: expectedName,
		Message:      fmt.Sprintf("%s: %s", field, fmt.Sprintf(format, args...)),
	}
}

func requiredError(field string, expected reflect.Type) *FieldError {
	return fieldErrorf(field, nil, expected, "required but not provided")
}

// trueValues and falseValues are the accepted wire spellings for bool
// parameters, matched case-insensitively.
var (
	trueValues  = map[string]bool{"true": true, "1": true, "yes": true, "on": true}
	falseValues = map[string]bool{"false": true, "0": true, "no": true, "off": true, "": true}
)

// validateValue converts a raw wire value to the target type, returning
// the converted value or a FieldError naming the field, the offending
// value, and the expected type. Raw values are either strings
// (path/query/header) or JSON-decoded values (body fields: float64,
// bool, string, map[string]any, []any, nil).
func validateValue(raw any, target reflect.Type, field string) (reflect.Value, *FieldError) {
	// Optional targets are pointers: unwrap, short-circuiting nil.
	if target.Kind() == reflect.Pointer {
		if raw == nil {
			return reflect.Zero(target), nil
		}
		v, err := validateValue(raw, target.Elem(), field)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(v)
		return p, nil
	}

	if raw == nil {
		return reflect.Value{}, requiredError(field, target)
	}

	// Any-typed targets pass through unchanged.
	if target.Kind() == reflect.Interface && target.NumMethod() == 0 {
		return reflect.ValueOf(raw), nil
	}

	rv := reflect.ValueOf(raw)

	// Already the right type.
	if rv.Type() == target {
		return rv, nil
	}

	if s, ok := raw.(string); ok {
		return convertString(s, target, field)
	}

	switch target.Kind() {
	case reflect.Struct:
		return convertModel(raw, target, field)
	case reflect.Map:
		return convertMap(raw, target, field)
	case reflect.Slice:
		return convertSlice(raw, target, field)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, ok := raw.(float64); ok {
			if f != math.Trunc(f) {
				return reflect.Value{}, fieldErrorf(field, raw, target, "'%v' is not a valid integer", raw)
			}
			return reflect.ValueOf(int64(f)).Convert(target), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f, ok := raw.(float64); ok && f >= 0 && f == math.Trunc(f) {
			return reflect.ValueOf(uint64(f)).Convert(target), nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := raw.(float64); ok {
			return reflect.ValueOf(f).Convert(target), nil
		}
	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			return reflect.ValueOf(b), nil
		}
	case reflect.String:
		// Non-string raw for a string target is a type error, fall out.
	}

	// Direct conversion as a last resort.
	if rv.Type().ConvertibleTo(target) && rv.Kind() == target.Kind() {
		return rv.Convert(target), nil
	}

	return reflect.Value{}, fieldErrorf(field, raw, target, "cannot convert %T to %s", raw, target)
}

// convertString converts a wire string (path, query, or header value)
// to the target type.
func convertString(s string, target reflect.Type, field string) (reflect.Value, *FieldError) {
	switch target {
	case reflect.TypeFor[time.Duration]():
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid duration", s)
		}
		return reflect.ValueOf(d), nil
	case reflect.TypeFor[time.Time]():
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid RFC 3339 timestamp", s)
		}
		return reflect.ValueOf(ts), nil
	case reflect.TypeFor[uuid.UUID]():
		id, err := uuid.Parse(s)
		if err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid UUID", s)
		}
		return reflect.ValueOf(id), nil
	case reflect.TypeFor[decimal.Decimal]():
		d, err := decimal.NewFromString(s)
		if err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid decimal", s)
		}
		return reflect.ValueOf(d), nil
	}

	switch target.Kind() {
	case reflect.String:
		return reflect.ValueOf(s).Convert(target), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid integer", s)
		}
		return reflect.ValueOf(n).Convert(target), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid unsigned integer", s)
		}
		return reflect.ValueOf(n).Convert(target), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid float", s)
		}
		return reflect.ValueOf(f).Convert(target), nil
	case reflect.Bool:
		lower := strings.ToLower(s)
		switch {
		case trueValues[lower]:
			return reflect.ValueOf(true), nil
		case falseValues[lower]:
			return reflect.ValueOf(false), nil
		default:
			return reflect.Value{}, fieldErrorf(field, s, target, "'%s' is not a valid boolean", s)
		}
	}

	// Other target types attempt direct construction.
	if reflect.PointerTo(target).Implements(textUnmarshaler) {
		p := reflect.New(target)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, fieldErrorf(field, s, target, "cannot convert '%s' to %s: %v", s, target, err)
		}
		return p.Elem(), nil
	}

	return reflect.Value{}, fieldErrorf(field, s, target, "cannot convert '%s' to %s", s, target)
}

// convertModel constructs a struct model from a JSON-decoded mapping,
// validating each field independently so every offending field is
// reported, not just the first.
func convertModel(raw any, target reflect.Type, field string) (reflect.Value, *FieldError) {
	m, ok := raw.(map[string]any)
	if !ok {
		return reflect.Value{}, fieldErrorf(field, raw, target, "expected %s or object, got %T", target.Name(), raw)
	}
	v, errs := buildModel(m, target, field)
	if len(errs) > 0 {
		// Callers that can report multiple errors use buildModel
		// directly; here the first failure represents the field.
		return reflect.Value{}, errs[0]
	}
	return v, nil
}

// buildModel populates a struct from a decoded JSON object, collecting
// every per-field failure. The prefix is prepended to nested field
// names with a dot.
func buildModel(m map[string]any, target reflect.Type, prefix string) (reflect.Value, []*FieldError) {
	out := reflect.New(target).Elem()
	var errs []*FieldError

	for i := range target.NumField() {
		f := target.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonFieldName(f)
		if name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		raw, present := m[name]
		if !present || raw == nil {
			if f.Tag.Get("required") == "true" {
				errs = append(errs, requiredError(path, f.Type))
			}
			continue
		}

		if f.Type.Kind() == reflect.Struct || (f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct) {
			if nested, ok := raw.(map[string]any); ok && !isWireScalar(f.Type) {
				ft := derefType(f.Type)
				nv, nerrs := buildModel(nested, ft, path)
				if len(nerrs) > 0 {
					errs = append(errs, nerrs...)
					continue
				}
				if f.Type.Kind() == reflect.Pointer {
					p := reflect.New(ft)
					p.Elem().Set(nv)
					out.Field(i).Set(p)
				} else {
					out.Field(i).Set(nv)
				}
				continue
			}
		}

		v, err := validateValue(raw, f.Type, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Field(i).Set(v)
	}

	return out, errs
}

func convertMap(raw any, target reflect.Type, field string) (reflect.Value, *FieldError) {
	m, ok := raw.(map[string]any)
	if !ok {
		return reflect.Value{}, fieldErrorf(field, raw, target, "expected object, got %T", raw)
	}
	if target.Key().Kind() != reflect.String {
		return reflect.Value{}, fieldErrorf(field, raw, target, "map keys must be strings")
	}
	out := reflect.MakeMapWithSize(target, len(m))
	for k, v := range m {
		ev, err := validateValue(v, target.Elem(), field+"."+k)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(target.Key()), ev)
	}
	return out, nil
}

func convertSlice(raw any, target reflect.Type, field string) (reflect.Value, *FieldError) {
	list, ok := raw.([]any)
	if !ok {
		return reflect.Value{}, fieldErrorf(field, raw, target, "expected array, got %T", raw)
	}
	out := reflect.MakeSlice(target, len(list), len(list))
	for i, item := range list {
		ev, err := validateValue(item, target.Elem(), fmt.Sprintf("%s.%d", field, i))
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(ev)
	}
	return out, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// decodeJSONValue decodes body bytes into a generic JSON value with
// numbers as float64, the shape validateValue expects.
func decodeJSONValue(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
