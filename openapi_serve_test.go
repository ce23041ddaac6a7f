package tatami_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tatami-web/tatami"
)

func TestServeSpecYAML(t *testing.T) {
	t.Parallel()

	r := newPetRouter()
	r.ServeSpecYAML("/openapi.yaml")

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/openapi.yaml", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/yaml", res.Header.Get("Content-Type"))

	var doc struct {
		OpenAPI string `yaml:"openapi"`
		Paths   map[string]map[string]any `yaml:"paths"`
	}
	require.NoError(t, yaml.NewDecoder(res.Body).Decode(&doc))
	assert.Equal(t, "3.1.0", doc.OpenAPI)
	assert.Contains(t, doc.Paths, "/pets")
}

func TestWriteSpec(t *testing.T) {
	t.Parallel()

	r := newPetRouter()

	var buf bytes.Buffer
	require.NoError(t, r.WriteSpec(&buf))
	assert.Contains(t, buf.String(), `"openapi": "3.1.0"`)
	assert.Contains(t, buf.String(), `"/pets"`)
}

func TestServeDocs_customUI(t *testing.T) {
	t.Parallel()

	r := tatami.New(tatami.WithTitle("Pets"))
	r.ServeDocs("/docs", tatami.WithDocsUI(tatami.DocsSwagger), tatami.WithDocsSpecURL("/spec.json"))

	srv := httptest.NewServer(r)
	defer srv.Close()

	res := get(t, srv.URL+"/docs", nil)
	defer closeBody(t, res)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body bytes.Buffer
	_, err := body.ReadFrom(res.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "swagger-ui")
	assert.Contains(t, body.String(), "spec.json")
}
