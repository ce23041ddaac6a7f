package tatami_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-web/tatami"
)

type idResponse struct {
	ID string `json:"id"`
}

func newRequestIDRouter(mw ...tatami.Middleware) *tatami.Router {
	r := tatami.New()
	r.Use(mw...)
	tatami.Get(r, "/id", func(_ context.Context, req *struct {
		Raw tatami.RawRequest
	}) (*idResponse, error) {
		return &idResponse{ID: tatami.GetRequestID(req.Raw.Request)}, nil
	})
	return r
}

func TestRequestID_generated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRequestIDRouter(tatami.RequestID()))
	defer srv.Close()

	res := get(t, srv.URL+"/id", nil)
	defer closeBody(t, res)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
}

func TestRequestID_propagatedFromHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRequestIDRouter(tatami.RequestID()))
	defer srv.Close()

	res := get(t, srv.URL+"/id", http.Header{"X-Request-Id": {"abc-123"}})
	defer closeBody(t, res)
	assert.Equal(t, "abc-123", res.Header.Get("X-Request-ID"))
}

func TestRequestID_customGenerator(t *testing.T) {
	t.Parallel()

	mw := tatami.RequestID(tatami.RequestIDConfig{
		Generator: func() string { return "fixed" },
	})
	srv := httptest.NewServer(newRequestIDRouter(mw))
	defer srv.Close()

	res := get(t, srv.URL+"/id", nil)
	defer closeBody(t, res)
	assert.Equal(t, "fixed", res.Header.Get("X-Request-ID"))
}

func TestRateLimit_returns429Problem(t *testing.T) {
	t.Parallel()

	r := tatami.New()
	r.Use(tatami.RateLimit(tatami.RateLimitConfig{
		Rate:    1,
		Burst:   1,
		KeyFunc: func(*http.Request) string { return "test" },
	}))
	tatami.Get(r, "/ping", func(_ context.Context, _ *tatami.Void) (*idResponse, error) {
		return &idResponse{ID: "pong"}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	first := get(t, srv.URL+"/ping", nil)
	closeBody(t, first)
	require.Equal(t, http.StatusOK, first.StatusCode)

	second := get(t, srv.URL+"/ping", nil)
	defer closeBody(t, second)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "application/problem+json", second.Header.Get("Content-Type"))
	assert.NotEmpty(t, second.Header.Get("Retry-After"))
}
