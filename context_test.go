package tatami_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-web/tatami"
)

type tenantID string

func TestCurrentEndpoint(t *testing.T) {
	t.Parallel()

	type whoResponse struct {
		Name   string `json:"name"`
		Method string `json:"method"`
		Path   string `json:"path"`
	}

	r := tatami.New()
	tatami.Get(r, "/who/{id}", func(ctx context.Context, _ *struct {
		ID string `path:"id"`
	}) (*whoResponse, error) {
		info, ok := tatami.CurrentEndpoint(ctx)
		if !ok {
			return nil, tatami.Error(http.StatusInternalServerError, "no endpoint info")
		}
		return &whoResponse{Name: info.Name, Method: info.Method, Path: info.Path}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/who/7", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body whoResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, http.MethodGet, body.Method)
	assert.Equal(t, "/who/{id}", body.Path)
	assert.NotEmpty(t, body.Name)
}

func TestTypedContextValues(t *testing.T) {
	t.Parallel()

	type tenantResponse struct {
		Tenant string `json:"tenant"`
	}

	r := tatami.New()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, tatami.SetValue(req, tenantID("acme")))
		})
	})
	tatami.Get(r, "/tenant", func(ctx context.Context, _ *tatami.Void) (*tenantResponse, error) {
		id, ok := tatami.GetValue[tenantID](ctx)
		if !ok {
			return nil, tatami.Error(http.StatusInternalServerError, "no tenant")
		}
		return &tenantResponse{Tenant: string(id)}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/tenant", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body tenantResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "acme", body.Tenant)
}
