package tatami

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
)

// BoundEndpoint pairs an Endpoint with the router it was compiled
// under: the runtime object that, given an inbound request, resolves
// parameters, validates them, invokes the handler, and serializes the
// result. Created lazily when the router tree is compiled and cached
// for the router's lifetime.
type BoundEndpoint struct {
	ep           *Endpoint
	effPath      string
	tags         []string
	registry     *Registry
	templatesDir string
	codecs       *codecRegistry

	once    sync.Once
	spec    *requestSpec
	specErr error
}

// Endpoint returns the underlying immutable endpoint descriptor.
func (b *BoundEndpoint) Endpoint() *Endpoint { return b.ep }

// EffectivePath returns the full path template the endpoint serves.
func (b *BoundEndpoint) EffectivePath() string { return b.effPath }

// requestSpec classifies the endpoint's request type against the
// effective path template, once. Signatures are static, so the result
// is cached for the endpoint's lifetime.
func (b *BoundEndpoint) requestSpec() (*requestSpec, error) {
	b.once.Do(func() {
		b.spec, b.specErr = classify(b.ep.reqType, b.effPath, b.registry)
	})
	return b.spec, b.specErr
}

// ServeHTTP runs the dispatch pipeline: resolve parameters, validate,
// invoke, serialize. Any collected validation failure short-circuits to
// a 422 problem response before the handler is invoked; configuration
// mistakes surface as 500s with a generic message.
func (b *BoundEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	spec, err := b.requestSpec()
	if err != nil {
		b.configError(w, err)
		return
	}

	req := b.ep.newReq()
	rv := reflect.ValueOf(req).Elem()

	var errs []*FieldError
	res := newResolution(b.registry, r, &errs)

	if err := bindParams(rv, spec, res, &errs); err != nil && !errors.Is(err, errValidation) {
		b.configError(w, err)
		return
	}

	b.bindBody(rv, spec, r, &errs)

	if len(errs) > 0 {
		writeProblem(w, validationProblem(errs))
		return
	}

	ctx := withEndpointInfo(r.Context(), EndpointInfo{
		Name:   b.ep.name,
		Method: b.ep.method,
		Path:   b.effPath,
	})
	result, err := b.ep.invoke(ctx, req)
	if err != nil {
		if ErrorStatus(err) >= http.StatusInternalServerError {
			slog.Error("handler error", "method", b.ep.method, "path", b.effPath, "err", err)
		}
		writeErrorResponse(w, err)
		return
	}

	st := &renderState{
		req:          r,
		handlerName:  b.ep.name,
		templatesDir: b.templatesDir,
		codecs:       b.codecs,
		status:       b.ep.status,
	}
	if b.ep.kind != nil {
		if err := b.ep.kind.write(w, st, result); err != nil {
			slog.Error("response write failed", "method", b.ep.method, "path", b.effPath, "err", err)
		}
		return
	}
	wrapResponse(w, st, result)
}

func (b *BoundEndpoint) configError(w http.ResponseWriter, err error) {
	slog.Error("endpoint configuration error", "method", b.ep.method, "path", b.effPath, "err", err)
	writeProblem(w, &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
	})
}

// bindParams resolves and validates the non-body parameters of a
// request struct, in the fixed order injected → path → query → header.
// Validation failures go into errs; the returned error is a
// configuration problem (or errValidation when a dependency's own
// request parameters failed to validate).
func bindParams(target reflect.Value, spec *requestSpec, res *resolution, errs *[]*FieldError) error {
	var sawValidation bool

	for _, kind := range []paramKind{kindRaw, kindInject, kindPath, kindQuery, kindHeader} {
		for _, p := range spec.byKind(kind) {
			field := target.FieldByIndex(p.index)

			switch kind {
			case kindRaw:
				if p.typ == httpRequestType {
					field.Set(reflect.ValueOf(res.req))
				} else {
					field.Set(reflect.ValueOf(RawRequest{Request: res.req}))
				}

			case kindInject:
				v, err := res.resolve(p.typ)
				if errors.Is(err, errValidation) {
					sawValidation = true
					continue
				}
				if err != nil {
					return err
				}
				rv := reflect.ValueOf(v)
				if !rv.Type().AssignableTo(p.typ) {
					return fmt.Errorf("tatami: provider for %s yields %s, not assignable to field %s", p.typ, rv.Type(), p.fieldName)
				}
				field.Set(rv)

			default:
				raw, present := lookupRaw(res.req, p)
				if !present {
					switch {
					case p.hasDefault:
						raw = p.defaultVal
					case p.typ.Kind() == reflect.Pointer && !p.required:
						// Absent optional parameter stays nil.
						continue
					default:
						// Non-pointer with no default, or an explicit
						// required tag.
						*errs = append(*errs, requiredError(p.key, p.typ))
						continue
					}
				}
				v, ferr := validateValue(raw, p.typ, p.key)
				if ferr != nil {
					*errs = append(*errs, ferr)
					continue
				}
				field.Set(v)
			}
		}
	}

	if sawValidation {
		return errValidation
	}
	return nil
}

// lookupRaw pulls the raw wire string for a path, query, or header
// spec. Header lookup is case-insensitive via canonical form.
func lookupRaw(r *http.Request, p paramSpec) (string, bool) {
	switch p.kind {
	case kindPath:
		v := r.PathValue(p.key)
		return v, v != ""
	case kindQuery:
		q := r.URL.Query()
		if !q.Has(p.key) {
			return "", false
		}
		return q.Get(p.key), true
	case kindHeader:
		vals := r.Header.Values(p.key)
		if len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}
	return "", false
}

// bodyMethods are the methods for which a request body is parsed.
var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// bindBody parses the request body once and populates every
// body-classified field from it. A parse failure is collected as a
// validation error on the synthetic request_body field.
func (b *BoundEndpoint) bindBody(target reflect.Value, spec *requestSpec, r *http.Request, errs *[]*FieldError) {
	bodySpecs := spec.byKind(kindBody)
	if len(bodySpecs) == 0 || !bodyMethods[r.Method] {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		*errs = append(*errs, fieldErrorf("request_body", nil, b.ep.reqType, "cannot read request body: %v", err))
		return
	}
	if len(data) == 0 {
		return
	}

	contentType := r.Header.Get("Content-Type")
	dec, ok := b.codecs.decoderFor(contentType)
	if !ok {
		*errs = append(*errs, fieldErrorf("request_body", contentType, b.ep.reqType, "unsupported content type %q", contentType))
		return
	}

	// JSON bodies decode to a generic value once and each body field is
	// constructed from it with per-field error collection. Other codecs
	// decode directly into the target field.
	if _, isJSON := dec.(jsonCodec); isJSON {
		parsed, err := decodeJSONValue(data)
		if err != nil {
			*errs = append(*errs, fieldErrorf("request_body", string(data), b.ep.reqType, "invalid JSON body: %v", err))
			return
		}
		for _, p := range bodySpecs {
			bindBodyField(target.FieldByIndex(p.index), p, parsed, errs)
		}
		return
	}

	for _, p := range bodySpecs {
		field := target.FieldByIndex(p.index)
		dst := field.Addr()
		if p.typ.Kind() == reflect.Pointer {
			dst = reflect.New(p.typ.Elem())
		}
		if err := dec.Decode(bytes.NewReader(data), dst.Interface()); err != nil {
			*errs = append(*errs, fieldErrorf(p.key, nil, p.typ, "cannot decode request body: %v", err))
			continue
		}
		if p.typ.Kind() == reflect.Pointer {
			field.Set(dst)
		}
	}
}

// bindBodyField validates one body field against the parsed body value.
func bindBodyField(field reflect.Value, p paramSpec, parsed any, errs *[]*FieldError) {
	ft := derefType(p.typ)

	if m, ok := parsed.(map[string]any); ok && ft.Kind() == reflect.Struct && !isWireScalar(ft) {
		v, ferrs := buildModel(m, ft, "")
		if len(ferrs) > 0 {
			*errs = append(*errs, ferrs...)
			return
		}
		if p.typ.Kind() == reflect.Pointer {
			ptr := reflect.New(ft)
			ptr.Elem().Set(v)
			field.Set(ptr)
		} else {
			field.Set(v)
		}
		return
	}

	v, ferr := validateValue(parsed, p.typ, p.key)
	if ferr != nil {
		*errs = append(*errs, ferr)
		return
	}
	field.Set(v)
}
