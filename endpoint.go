package tatami

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
)

// Endpoint is the immutable descriptor for a declared route: an HTTP
// method, a path template relative to the owning router, the typed
// handler, and OpenAPI metadata. Endpoints are created once at
// registration time and never mutated afterwards; dispatch state lives
// on the BoundEndpoint created when a router is compiled.
type Endpoint struct {
	method      string
	path        string
	name        string
	summary     string
	description string
	tags        []string
	deprecated  bool
	status      int
	kind        ResponseKind

	reqType  reflect.Type
	respType reflect.Type

	newReq func() any
	invoke func(ctx context.Context, req any) (any, error)
}

// Method returns the endpoint's HTTP method.
func (e *Endpoint) Method() string { return e.method }

// Path returns the endpoint's path template, relative to its router.
// An empty path means "exactly the router's own path"; "/" means the
// router's path with a trailing slash. The two are never collapsed.
func (e *Endpoint) Path() string { return e.path }

// Name returns the handler's function name.
func (e *Endpoint) Name() string { return e.name }

// Tags returns the endpoint's OpenAPI tags.
func (e *Endpoint) Tags() []string { return e.tags }

// Deprecated reports whether the endpoint is marked deprecated.
func (e *Endpoint) Deprecated() bool { return e.deprecated }

// EndpointOption configures an endpoint at registration time.
type EndpointOption func(*Endpoint)

// WithSummary sets the OpenAPI summary for the endpoint.
func WithSummary(s string) EndpointOption {
	return func(e *Endpoint) { e.summary = s }
}

// WithDescription sets the OpenAPI description for the endpoint.
func WithDescription(d string) EndpointOption {
	return func(e *Endpoint) { e.description = d }
}

// WithTags adds OpenAPI tags to the endpoint.
func WithTags(tags ...string) EndpointOption {
	return func(e *Endpoint) { e.tags = append(e.tags, tags...) }
}

// Deprecated marks the endpoint as deprecated in the OpenAPI spec.
func Deprecated() EndpointOption {
	return func(e *Endpoint) { e.deprecated = true }
}

// WithStatus sets the default HTTP status code for the response.
func WithStatus(code int) EndpointOption {
	return func(e *Endpoint) { e.status = code }
}

// WithResponseKind sets an explicit response kind, bypassing the
// default wrapping policy.
func WithResponseKind(k ResponseKind) EndpointOption {
	return func(e *Endpoint) { e.kind = k }
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Request registers a handler for an arbitrary HTTP method and path on
// the router. The path is relative to the router's own path: an empty
// string binds the endpoint at exactly the router's path.
func Request[Req, Resp any](r *Router, method, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	if !allowedMethods[method] {
		panic(fmt.Sprintf("tatami: unsupported HTTP method %q", method))
	}

	e := &Endpoint{
		method:   method,
		path:     path,
		name:     handlerName(h),
		reqType:  reflect.TypeFor[Req](),
		respType: reflect.TypeFor[Resp](),
		newReq:   func() any { return new(Req) },
		invoke: func(ctx context.Context, req any) (any, error) {
			resp, err := h(ctx, req.(*Req))
			if err != nil {
				return nil, err
			}
			return resp, nil
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.status == 0 {
		e.status = defaultStatus(e.respType)
	}

	r.addEndpoint(e)
	return e
}

// defaultStatus picks the status used when an endpoint declares none:
// 204 for Void responses, 200 otherwise.
func defaultStatus(respType reflect.Type) int {
	if respType == reflect.TypeFor[Void]() {
		return http.StatusNoContent
	}
	return http.StatusOK
}

// Get registers a GET handler.
func Get[Req, Resp any](r *Router, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	return Request(r, http.MethodGet, path, h, opts...)
}

// Post registers a POST handler.
func Post[Req, Resp any](r *Router, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	return Request(r, http.MethodPost, path, h, opts...)
}

// Put registers a PUT handler.
func Put[Req, Resp any](r *Router, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	return Request(r, http.MethodPut, path, h, opts...)
}

// Patch registers a PATCH handler.
func Patch[Req, Resp any](r *Router, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	return Request(r, http.MethodPatch, path, h, opts...)
}

// Delete registers a DELETE handler.
func Delete[Req, Resp any](r *Router, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	return Request(r, http.MethodDelete, path, h, opts...)
}

// Head registers a HEAD handler.
func Head[Req, Resp any](r *Router, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	return Request(r, http.MethodHead, path, h, opts...)
}

// Options registers an OPTIONS handler.
func Options[Req, Resp any](r *Router, path string, h Handler[Req, Resp], opts ...EndpointOption) *Endpoint {
	return Request(r, http.MethodOptions, path, h, opts...)
}
