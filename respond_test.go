package tatami_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-web/tatami"
)

func TestRespond_voidIs204(t *testing.T) {
	t.Parallel()

	r := tatami.New()
	tatami.Delete(r, "/gone", func(_ context.Context, _ *tatami.Void) (*tatami.Void, error) {
		return &tatami.Void{}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, srv.URL+"/gone", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestRespond_redirect(t *testing.T) {
	t.Parallel()

	r := tatami.New()
	tatami.Get(r, "/old", func(_ context.Context, _ *tatami.Void) (*tatami.Redirect, error) {
		return &tatami.Redirect{URL: "/new"}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := get(t, srv.URL+"/old", nil)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/new", resp.Header.Get("Location"))
}

type createdResp struct {
	ID int `json:"id"`
}

func (createdResp) StatusCode() int { return http.StatusCreated }

func TestRespond_statusCoderResult(t *testing.T) {
	t.Parallel()

	r := tatami.New()
	tatami.Post(r, "/things", func(_ context.Context, _ *tatami.Void) (*createdResp, error) {
		return &createdResp{ID: 1}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/things", "application/json", nil)
	require.NoError(t, err)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRespond_explicitHTMLKind(t *testing.T) {
	t.Parallel()

	r := tatami.New()
	tatami.Get(r, "/page", func(_ context.Context, _ *tatami.Void) (*string, error) {
		s := "<h1>hi</h1>"
		return &s, nil
	}, tatami.WithResponseKind(tatami.HTML{}))

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := get(t, srv.URL+"/page", nil)
	defer closeBody(t, resp)

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<h1>hi</h1>", string(body))
}

func TestRespond_streamKind(t *testing.T) {
	t.Parallel()

	r := tatami.New()
	tatami.Get(r, "/file", func(_ context.Context, _ *tatami.Void) (*strings.Reader, error) {
		return strings.NewReader("raw bytes"), nil
	}, tatami.WithResponseKind(tatami.Stream{ContentType: "text/plain"}))

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := get(t, srv.URL+"/file", nil)
	defer closeBody(t, resp)

	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(body))
}

func TestRespond_templateProbing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tmpl := filepath.Join(dir, "render_greeting.tmpl")
	require.NoError(t, os.WriteFile(tmpl, []byte("<p>{{.}}</p>"), 0o600))

	r := tatami.New(tatami.WithTemplatesDir(dir))
	tatami.Get(r, "/greet", renderGreeting)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := get(t, srv.URL+"/greet", nil)
	defer closeBody(t, resp)

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(body))
}

func renderGreeting(_ context.Context, _ *tatami.Void) (*string, error) {
	s := "hello"
	return &s, nil
}

func TestRespond_acceptXML(t *testing.T) {
	t.Parallel()

	type item struct {
		Name string `json:"name" xml:"name"`
	}

	r := tatami.New()
	tatami.Get(r, "/item", func(_ context.Context, _ *tatami.Void) (*item, error) {
		return &item{Name: "gear"}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := get(t, srv.URL+"/item", http.Header{"Accept": []string{"application/xml"}})
	defer closeBody(t, resp)

	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<name>gear</name>")
}

func TestRespond_acceptStructuredSuffix(t *testing.T) {
	t.Parallel()

	type item struct {
		Name string `json:"name"`
	}

	r := tatami.New()
	tatami.Get(r, "/item", func(_ context.Context, _ *tatami.Void) (*item, error) {
		return &item{Name: "gear"}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := get(t, srv.URL+"/item", http.Header{"Accept": []string{"application/vnd.api+json"}})
	defer closeBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"name":"gear"`)
}

func TestRespond_unacceptableAcceptIs406(t *testing.T) {
	t.Parallel()

	type item struct {
		Name string `json:"name"`
	}

	r := tatami.New()
	tatami.Get(r, "/item", func(_ context.Context, _ *tatami.Void) (*item, error) {
		return &item{Name: "gear"}, nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp := get(t, srv.URL+"/item", http.Header{"Accept": []string{"text/csv"}})
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
}
