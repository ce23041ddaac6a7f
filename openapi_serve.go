package tatami

import (
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ServeSpec registers a GET route at the given path that serves the
// OpenAPI spec as JSON. Returns the router for chaining.
func (r *Router) ServeSpec(path string) *Router {
	return r.AddRoute("GET "+path, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(r.Spec())
	}))
}

// ServeSpecYAML registers a GET route at the given path that serves the
// OpenAPI spec as YAML. Returns the router for chaining.
func (r *Router) ServeSpecYAML(path string) *Router {
	return r.AddRoute("GET "+path, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		yaml.NewEncoder(w).Encode(r.Spec())
	}))
}

// WriteSpec writes the OpenAPI spec as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Spec())
}

// WriteSpecYAML writes the OpenAPI spec as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(r.Spec())
}
