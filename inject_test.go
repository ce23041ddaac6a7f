package tatami_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-web/tatami"
)

func TestInject_singletonSharedAcrossRequests(t *testing.T) {
	t.Parallel()

	type store struct{ id int64 }
	var built atomic.Int64

	r := tatami.New()
	tatami.Provide[*store](r.Registry(), func() *store {
		return &store{id: built.Add(1)}
	})

	type req struct {
		Store *store `inject:""`
	}
	type resp struct {
		ID int64 `json:"id"`
	}

	tatami.Get(r, "/id", func(_ context.Context, in *req) (*resp, error) {
		return &resp{ID: in.Store.id}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	for range 3 {
		res := get(t, srv.URL+"/id", nil)
		var body resp
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		closeBody(t, res)
		assert.Equal(t, int64(1), body.ID)
	}
	assert.Equal(t, int64(1), built.Load())
}

func TestInject_requestScopeMemoizedPerRequest(t *testing.T) {
	t.Parallel()

	type tx struct{ id int64 }
	var built atomic.Int64

	r := tatami.New()
	tatami.Provide[*tx](r.Registry(), func() *tx {
		return &tx{id: built.Add(1)}
	}, tatami.InScope(tatami.ScopeRequest))

	type req struct {
		A *tx `inject:""`
		B *tx `inject:""`
	}
	type resp struct {
		A    int64 `json:"a"`
		B    int64 `json:"b"`
		Same bool  `json:"same"`
	}

	tatami.Get(r, "/tx", func(_ context.Context, in *req) (*resp, error) {
		return &resp{A: in.A.id, B: in.B.id, Same: in.A == in.B}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	var first resp
	res := get(t, srv.URL+"/tx", nil)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&first))
	closeBody(t, res)

	// Two injection sites inside one request share the instance.
	assert.True(t, first.Same)
	assert.Equal(t, first.A, first.B)

	var second resp
	res = get(t, srv.URL+"/tx", nil)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&second))
	closeBody(t, res)

	// A new request gets a fresh instance.
	assert.NotEqual(t, first.A, second.A)
}

func TestInject_factoryConsumesRequestParams(t *testing.T) {
	t.Parallel()

	type authParams struct {
		Token string `header:"X-Token" required:"true"`
	}
	type authCtx struct{ user string }

	r := tatami.New()
	tatami.Provide[*authCtx](r.Registry(), func(p authParams) *authCtx {
		return &authCtx{user: "user-" + p.Token}
	}, tatami.InScope(tatami.ScopeRequest))

	type req struct {
		Auth *authCtx `inject:""`
	}
	type resp struct {
		User string `json:"user"`
	}

	tatami.Get(r, "/me", func(_ context.Context, in *req) (*resp, error) {
		return &resp{User: in.Auth.user}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/me", http.Header{"X-Token": []string{"abc"}})
	var body resp
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	closeBody(t, res)
	assert.Equal(t, "user-abc", body.User)

	// The factory's own parameter failures surface as a 422, the same
	// as a handler parameter failure.
	res = get(t, srv.URL+"/me", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	var p tatami.ProblemDetail
	require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
	assert.Equal(t, "X-Token", p.Field)
}

func TestInject_factoryChain(t *testing.T) {
	t.Parallel()

	type db struct{ dsn string }
	type repo struct{ db *db }

	r := tatami.New()
	tatami.Provide[*db](r.Registry(), func() *db {
		return &db{dsn: "mem://"}
	})
	tatami.Provide[*repo](r.Registry(), func(d *db) *repo {
		return &repo{db: d}
	})

	type req struct {
		Repo *repo `inject:""`
	}
	type resp struct {
		DSN string `json:"dsn"`
	}

	tatami.Get(r, "/dsn", func(_ context.Context, in *req) (*resp, error) {
		return &resp{DSN: in.Repo.db.dsn}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/dsn", nil)
	defer closeBody(t, res)

	var body resp
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "mem://", body.DSN)
}

func TestInject_cycleIsConfigError(t *testing.T) {
	t.Parallel()

	type a struct{ n int }
	type b struct{ n int }

	reg := tatami.NewRegistry()
	tatami.Provide[*a](reg, func(x *b) *a { return &a{n: x.n} }, tatami.InScope(tatami.ScopeRequest))
	tatami.Provide[*b](reg, func(x *a) *b { return &b{n: x.n} }, tatami.InScope(tatami.ScopeRequest))

	type req struct {
		A *a `inject:""`
	}
	type resp struct {
		N int `json:"n"`
	}

	r := tatami.New(tatami.WithRegistry(reg))
	tatami.Get(r, "/cycle", func(_ context.Context, in *req) (*resp, error) {
		return &resp{N: in.A.n}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/cycle", nil)
	defer closeBody(t, res)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestProvide_duplicatePanics(t *testing.T) {
	t.Parallel()

	type svc struct{ n int }

	reg := tatami.NewRegistry()
	tatami.Provide[*svc](reg, nil)

	assert.Panics(t, func() {
		tatami.Provide[*svc](reg, nil)
	})
}
