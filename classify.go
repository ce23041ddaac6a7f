package tatami

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// paramKind says where a request field's value comes from.
type paramKind uint8

const (
	kindPath paramKind = iota
	kindQuery
	kindHeader
	kindBody
	kindInject
	kindRaw
)

func (k paramKind) String() string {
	switch k {
	case kindPath:
		return "path"
	case kindQuery:
		return "query"
	case kindHeader:
		return "header"
	case kindBody:
		return "body"
	case kindInject, kindRaw:
		return "injected"
	}
	return "unknown"
}

// paramSpec is the classification result for a single request field.
type paramSpec struct {
	index      []int
	fieldName  string
	key        string // external name on the wire
	kind       paramKind
	typ        reflect.Type
	defaultVal string
	hasDefault bool
	required   bool
}

// requestSpec holds the classified fields of a request type, in
// declaration order.
type requestSpec struct {
	params []paramSpec
}

func (s *requestSpec) byKind(k paramKind) []paramSpec {
	var out []paramSpec
	for _, p := range s.params {
		if p.kind == k {
			out = append(out, p)
		}
	}
	return out
}

var (
	rawRequestType  = reflect.TypeFor[RawRequest]()
	httpRequestType = reflect.TypeFor[*http.Request]()
	textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// classify inspects a request struct type against the effective path
// template and produces a spec per exported field. It is a pure
// function of (type, template, registry contents): no I/O, no request
// state. Ambiguous fields fall through to template inference rather
// than failing; the only error is an inject-tagged field whose type has
// no provider, which is a configuration mistake.
func classify(t reflect.Type, pathTemplate string, reg *Registry) (*requestSpec, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	spec := &requestSpec{}
	if t.Kind() != reflect.Struct || t == reflect.TypeFor[Void]() {
		return spec, nil
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		p := paramSpec{
			index:     f.Index,
			fieldName: f.Name,
			typ:       f.Type,
			required:  f.Tag.Get("required") == "true",
		}
		if def, ok := f.Tag.Lookup("default"); ok {
			p.defaultVal = def
			p.hasDefault = true
		}

		switch {
		// Explicit binding markers win over everything.
		case tagged(f, "path", &p):
			p.kind = kindPath
			if p.key == "" {
				p.key = snakeCase(f.Name)
			}
		case tagged(f, "query", &p):
			p.kind = kindQuery
			if p.key == "" {
				p.key = snakeCase(f.Name)
			}
		case tagged(f, "header", &p):
			p.kind = kindHeader
			if p.key == "" {
				p.key = headerKey(f.Name)
			}
		case tagged(f, "inject", &p):
			p.kind = kindInject
			if reg == nil || reg.lookup(derefType(f.Type)) == nil {
				return nil, fmt.Errorf("tatami: field %s.%s is marked inject but %s has no provider", t.Name(), f.Name, f.Type)
			}

		// The raw request context type.
		case f.Type == rawRequestType || f.Type == httpRequestType:
			p.kind = kindRaw

		// The Body field is always the request body.
		case f.Name == "Body":
			p.kind = kindBody
			p.key = "body"

		// A registered injectable type.
		case reg != nil && reg.lookup(derefType(f.Type)) != nil:
			p.kind = kindInject

		// A structured model type.
		case isModelType(f.Type):
			p.kind = kindBody
			p.key = snakeCase(f.Name)

		// Infer from the path template; untagged scalars default to query.
		default:
			p.key = snakeCase(f.Name)
			if strings.Contains(pathTemplate, "{"+p.key+"}") {
				p.kind = kindPath
			} else {
				p.kind = kindQuery
			}
		}

		spec.params = append(spec.params, p)
	}

	return spec, nil
}

// tagged fills p.key from an explicit binding tag, reporting whether
// the tag is present at all (an empty value means "marker with the
// derived default name").
func tagged(f reflect.StructField, tag string, p *paramSpec) bool {
	val, ok := f.Tag.Lookup(tag)
	if !ok {
		return false
	}
	name, _, _ := strings.Cut(val, ",")
	p.key = name
	return true
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// isModelType reports whether a type should be treated as a request
// body model: structs, maps and slices that are not wire scalars.
func isModelType(t reflect.Type) bool {
	t = derefType(t)
	if isWireScalar(t) {
		return false
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return true
	case reflect.Slice:
		return t.Elem() != reflect.TypeFor[byte]()
	default:
		return false
	}
}

// isWireScalar reports whether a type converts from a single wire
// string (and therefore may travel in a path, query, or header).
func isWireScalar(t reflect.Type) bool {
	t = derefType(t)
	switch t {
	case reflect.TypeFor[time.Time](),
		reflect.TypeFor[time.Duration](),
		reflect.TypeFor[uuid.UUID](),
		reflect.TypeFor[decimal.Decimal]():
		return true
	}
	if reflect.PointerTo(t).Implements(textUnmarshaler) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
