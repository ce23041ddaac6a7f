package tatami

import (
	"html/template"
	"net/http"
)

// DocsUI selects the documentation frontend rendered by ServeDocs.
type DocsUI string

const (
	// DocsElements renders Stoplight Elements (the default).
	DocsElements DocsUI = "elements"
	// DocsSwagger renders Swagger UI.
	DocsSwagger DocsUI = "swagger"
	// DocsRedoc renders ReDoc.
	DocsRedoc DocsUI = "redoc"
)

// DocsOption configures the docs UI.
type DocsOption func(*docsConfig)

type docsConfig struct {
	title   string
	specURL string
	ui      DocsUI
}

// WithDocsTitle sets the page title for the docs UI.
func WithDocsTitle(title string) DocsOption {
	return func(c *docsConfig) { c.title = title }
}

// WithDocsSpecURL sets the URL the docs UI loads the spec from. The
// default is /openapi.json.
func WithDocsSpecURL(url string) DocsOption {
	return func(c *docsConfig) { c.specURL = url }
}

// WithDocsUI selects the documentation frontend.
func WithDocsUI(ui DocsUI) DocsOption {
	return func(c *docsConfig) { c.ui = ui }
}

// ServeDocs registers a GET route serving an interactive documentation
// UI pointing at the router's OpenAPI spec. Returns the router for
// chaining.
func (r *Router) ServeDocs(path string, opts ...DocsOption) *Router {
	cfg := &docsConfig{
		title:   r.title,
		specURL: "/openapi.json",
		ui:      DocsElements,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	shell := docsElementsHTML
	switch cfg.ui {
	case DocsSwagger:
		shell = docsSwaggerHTML
	case DocsRedoc:
		shell = docsRedocHTML
	}
	tmpl := template.Must(template.New("docs").Parse(shell))

	return r.AddRoute("GET "+path, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort template render
		tmpl.Execute(w, cfg)
	}))
}

const docsElementsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css">
  <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
</head>
<body>
  <elements-api
    apiDescriptionUrl="{{.SpecURL}}"
    router="hash"
    layout="sidebar"
  />
</body>
</html>`

const docsSwaggerHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: "{{.SpecURL}}", dom_id: "#swagger-ui"});
  </script>
</body>
</html>`

const docsRedocHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body>
  <redoc spec-url="{{.SpecURL}}"></redoc>
  <script src="https://unpkg.com/redoc@latest/bundles/redoc.standalone.js"></script>
</body>
</html>`

// Title returns the docs config title (used in the template).
func (c *docsConfig) Title() string { return c.title }

// SpecURL returns the docs config spec URL (used in the template).
func (c *docsConfig) SpecURL() string { return c.specURL }
