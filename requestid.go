package tatami

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// maxRequestIDLen caps inbound IDs so a hostile client cannot inflate
// logs through the passthrough header.
const maxRequestIDLen = 128

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: random UUID
}

// RequestID returns middleware that tags every request with an ID. An
// inbound header value is passed through when present (and sane);
// otherwise a fresh ID is generated. The ID lands in the context and on
// the response header so clients and logs can correlate.
func RequestID(cfg ...RequestIDConfig) Middleware {
	c := RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(c.Header)
			if id == "" || len(id) > maxRequestIDLen {
				id = c.Generator()
			}

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			w.Header().Set(c.Header, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID extracts the request ID from the request context.
func GetRequestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
