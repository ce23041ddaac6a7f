package tatami_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-web/tatami"
)

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 404, tatami.ErrorStatus(tatami.Error(404, "missing")))
	assert.Equal(t, 404, tatami.ErrorStatus(fmt.Errorf("wrapped: %w", tatami.Error(404, "missing"))))
	assert.Equal(t, 500, tatami.ErrorStatus(errors.New("plain")))
}

func TestHandlerError_statusAndDetail(t *testing.T) {
	t.Parallel()

	type resp struct {
		OK bool `json:"ok"`
	}

	r := tatami.New()
	tatami.Get(r, "/missing", func(_ context.Context, _ *tatami.Void) (*resp, error) {
		return nil, tatami.Errorf(http.StatusNotFound, "post %d not found", 9)
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/missing", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))

	var p tatami.ProblemDetail
	require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, "Not Found", p.Title)
	assert.Equal(t, "post 9 not found", p.Detail)
	assert.NotEmpty(t, p.Instance)
}

func TestHandlerError_internalDetailHidden(t *testing.T) {
	t.Parallel()

	type resp struct {
		OK bool `json:"ok"`
	}

	r := tatami.New()
	tatami.Get(r, "/boom", func(_ context.Context, _ *tatami.Void) (*resp, error) {
		return nil, errors.New("database password is hunter2")
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/boom", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)

	var p tatami.ProblemDetail
	require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
	assert.Empty(t, p.Detail)
	assert.Equal(t, "Internal Server Error", p.Title)
}

func TestHandlerError_problemDetailPassesThrough(t *testing.T) {
	t.Parallel()

	type resp struct {
		OK bool `json:"ok"`
	}

	r := tatami.New()
	tatami.Get(r, "/teapot", func(_ context.Context, _ *tatami.Void) (*resp, error) {
		return nil, &tatami.ProblemDetail{
			Type:   "https://example.com/problems/teapot",
			Title:  "I'm a teapot",
			Status: http.StatusTeapot,
			Detail: "short and stout",
		}
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/teapot", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusTeapot, res.StatusCode)

	var p tatami.ProblemDetail
	require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
	assert.Equal(t, "https://example.com/problems/teapot", p.Type)
	assert.Equal(t, "short and stout", p.Detail)
}

func TestRecovery_panicIs500Problem(t *testing.T) {
	t.Parallel()

	type resp struct {
		OK bool `json:"ok"`
	}

	r := tatami.New()
	r.Use(tatami.Recovery())
	tatami.Get(r, "/panic", func(_ context.Context, _ *tatami.Void) (*resp, error) {
		panic("unreachable state")
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/panic", nil)
	defer closeBody(t, res)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))
}
