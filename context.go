package tatami

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	ctx := context.WithValue(r.Context(), contextKey[T]{}, val)
	return r.WithContext(ctx)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

// EndpointInfo identifies the endpoint handling the current request. It
// is placed in the context by the dispatcher before the handler runs.
type EndpointInfo struct {
	Name   string // handler name, e.g. "getPost"
	Method string
	Path   string // effective path template, e.g. "/post/{post_id}"
}

type endpointInfoKey struct{}

func withEndpointInfo(ctx context.Context, info EndpointInfo) context.Context {
	return context.WithValue(ctx, endpointInfoKey{}, info)
}

// CurrentEndpoint returns the endpoint handling the request, if the
// context came from a dispatched handler.
func CurrentEndpoint(ctx context.Context) (EndpointInfo, bool) {
	info, ok := ctx.Value(endpointInfoKey{}).(EndpointInfo)
	return info, ok
}
