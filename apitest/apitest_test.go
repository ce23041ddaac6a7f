package apitest_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-web/tatami"
	"github.com/tatami-web/tatami/apitest"
)

type echoPayload struct {
	Name string `json:"name"`
}

type echoRequest struct {
	Body echoPayload
}

type echoResponse struct {
	Greeting string `json:"greeting"`
}

func newEchoRouter() *tatami.Router {
	r := tatami.New()
	tatami.Post(r, "/greet", func(_ context.Context, req *echoRequest) (*echoResponse, error) {
		return &echoResponse{Greeting: "hello " + req.Body.Name}, nil
	})
	tatami.Get(r, "/missing", func(_ context.Context, _ *tatami.Void) (*echoResponse, error) {
		return nil, tatami.Error(http.StatusNotFound, "nobody here")
	})
	tatami.Delete(r, "/greet", func(_ context.Context, _ *tatami.Void) (*tatami.Void, error) {
		return nil, nil
	})
	return r
}

func TestClient_typedRoundTrip(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newEchoRouter())

	resp := apitest.Post[echoPayload, echoResponse](t, c, "/greet", &echoPayload{Name: "mika"})
	require.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "hello mika", resp.Body.Greeting)
}

func TestClient_problemResponse(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newEchoRouter())

	resp := apitest.Get[tatami.ProblemDetail](t, c, "/missing")
	require.Equal(t, http.StatusNotFound, resp.Status)
	require.NotNil(t, resp.Body)
	assert.Equal(t, "nobody here", resp.Body.Detail)
}

func TestClient_noContent(t *testing.T) {
	t.Parallel()

	c := apitest.NewClient(t, newEchoRouter())

	resp := apitest.Delete[tatami.Void](t, c, "/greet")
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Nil(t, resp.Body)
}
