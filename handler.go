package tatami

import (
	"context"
	"net/http"
)

// Void is used as a type parameter when a request has no parameters/body
// or a response has no body (results in 204 No Content).
type Void struct{}

// Handler is the core typed handler signature. The framework owns
// binding and serialization; handlers never see http.ResponseWriter
// or *http.Request.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

// RawRequest can be declared as a request field to get access to the
// underlying *http.Request. It is injected as-is and bypasses validation.
type RawRequest struct {
	Request *http.Request
}

// Redirect is returned from a handler to issue an HTTP redirect.
type Redirect struct {
	URL    string
	Status int
}

// StatusCoder is implemented by errors or responses that carry an HTTP
// status code.
type StatusCoder interface {
	StatusCode() int
}
