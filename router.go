package tatami

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Router is a tree node: a path prefix, OpenAPI metadata, an ordered
// set of endpoints, child routers, raw mounts, and middleware. Routers
// compose with Include; the compiled tree serves via net/http.
type Router struct {
	path        string
	title       string
	version     string
	description string
	tags        []string

	endpoints []*Endpoint
	children  []*Router
	mounts    []mountEntry
	raws      []rawRoute
	middlew   []Middleware
	source    EndpointSource

	registry     *Registry
	templatesDir string
	userEncoders []Encoder
	userDecoders []Decoder

	mu      sync.Mutex
	handler http.Handler
	dirty   bool
}

type mountEntry struct {
	path string
	app  http.Handler
}

type rawRoute struct {
	pattern string // full ServeMux pattern, e.g. "GET /openapi.json"
	handler http.Handler
}

// Option configures a Router.
type Option func(*Router)

// WithTitle sets the API title (used in the OpenAPI spec).
func WithTitle(title string) Option {
	return func(r *Router) { r.title = title }
}

// WithVersion sets the API version (used in the OpenAPI spec).
func WithVersion(version string) Option {
	return func(r *Router) { r.version = version }
}

// WithRouterDescription sets the API description (used in the OpenAPI spec).
func WithRouterDescription(d string) Option {
	return func(r *Router) { r.description = d }
}

// WithRouterTags sets default OpenAPI tags for all endpoints on the router.
func WithRouterTags(tags ...string) Option {
	return func(r *Router) { r.tags = append(r.tags, tags...) }
}

// WithRegistry sets the dependency registry for the router. Child
// routers without their own registry use the compiled root's.
func WithRegistry(reg *Registry) Option {
	return func(r *Router) { r.registry = reg }
}

// WithTemplatesDir sets the directory probed for response templates by
// the default wrapping policy.
func WithTemplatesDir(dir string) Option {
	return func(r *Router) { r.templatesDir = dir }
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) Option {
	return func(r *Router) { r.userEncoders = append(r.userEncoders, enc) }
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) Option {
	return func(r *Router) { r.userDecoders = append(r.userDecoders, dec) }
}

// WithEndpointSource sets a strategy that contributes endpoints beyond
// the explicitly declared ones, such as Convention.
func WithEndpointSource(src EndpointSource) Option {
	return func(r *Router) { r.source = src }
}

// New creates a root router mounted at "/". The root path contributes
// no prefix to endpoint paths.
func New(opts ...Option) *Router {
	r := NewRouter("/", opts...)
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	return r
}

// NewRouter creates a router under the given path prefix.
func NewRouter(path string, opts ...Option) *Router {
	r := &Router{path: path, dirty: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the router's path prefix.
func (r *Router) Path() string { return r.path }

// Title returns the router's API title.
func (r *Router) Title() string { return r.title }

// Registry returns the router's dependency registry, creating it on
// first use.
func (r *Router) Registry() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	return r.registry
}

// Include adds a child router. Its endpoints are served under this
// router's path joined with the child's. Returns the router for
// chaining.
func (r *Router) Include(child *Router) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children = append(r.children, child)
	r.dirty = true
	return r
}

// Mount attaches a raw http.Handler subtree (static files, another
// application) under the given path. Returns the router for chaining.
func (r *Router) Mount(path string, app http.Handler) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounts = append(r.mounts, mountEntry{path: path, app: app})
	r.dirty = true
	return r
}

// AddRoute registers a raw route with a full ServeMux pattern, escaping
// the typed handler pipeline. Returns the router for chaining.
func (r *Router) AddRoute(pattern string, h http.Handler) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raws = append(r.raws, rawRoute{pattern: pattern, handler: h})
	r.dirty = true
	return r
}

// Use adds middleware. Root middleware wraps the whole compiled mux;
// middleware on an included router wraps only that router's endpoints.
// Returns the router for chaining.
func (r *Router) Use(mw ...Middleware) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlew = append(r.middlew, mw...)
	r.dirty = true
	return r
}

func (r *Router) addEndpoint(e *Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = append(r.endpoints, e)
	r.dirty = true
}

// collectEndpoints returns the declared endpoints plus any contributed
// by the router's endpoint source strategy.
func (r *Router) collectEndpoints() ([]*Endpoint, error) {
	eps := append([]*Endpoint(nil), r.endpoints...)
	if r.source != nil {
		extra, err := r.source.collectEndpoints()
		if err != nil {
			return nil, err
		}
		eps = append(eps, extra...)
	}
	return eps, nil
}

// ServeHTTP implements http.Handler, compiling the router tree on first
// use and after any mutation.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	if r.dirty || r.handler == nil {
		r.handler = r.compile()
		r.dirty = false
	}
	h := r.handler
	r.mu.Unlock()

	h.ServeHTTP(w, req)
}

// compile flattens the router tree onto a ServeMux. Called with r.mu
// held. Endpoint configuration mistakes are deferred to dispatch time
// so one broken route does not take down its siblings.
func (r *Router) compile() http.Handler {
	mux := http.NewServeMux()
	r.compileInto(mux, "", r, nil)

	handler := http.Handler(mux)
	for i := len(r.middlew) - 1; i >= 0; i-- {
		handler = r.middlew[i](handler)
	}
	return handler
}

// compileInto registers a node's endpoints, mounts, raw routes, and
// children onto the mux. prefix is the accumulated parent path; mw is
// the accumulated non-root middleware chain.
func (r *Router) compileInto(mux *http.ServeMux, prefix string, root *Router, mw []Middleware) {
	base := joinPath(prefix, r.path)
	if r != root {
		mw = append(append([]Middleware(nil), mw...), r.middlew...)
	}

	reg := r.registry
	if reg == nil {
		reg = root.registry
	}
	templatesDir := r.templatesDir
	if templatesDir == "" {
		templatesDir = root.templatesDir
	}

	eps, err := r.collectEndpoints()
	if err != nil {
		// Configuration error: registering a handler that reports it
		// keeps the failure loud without panicking inside ServeHTTP.
		mux.Handle(patternFor(base, ""), configErrorHandler(err))
		return
	}

	for _, ep := range eps {
		eff := joinPath(base, ep.path)
		bound := &BoundEndpoint{
			ep:           ep,
			effPath:      eff,
			tags:         r.endpointTags(ep),
			registry:     reg,
			templatesDir: templatesDir,
			codecs:       newCodecRegistry(root.userEncoders, root.userDecoders),
		}
		var h http.Handler = bound
		for i := len(mw) - 1; i >= 0; i-- {
			h = mw[i](h)
		}
		mux.Handle(ep.method+" "+muxPattern(eff), h)
	}

	for _, m := range r.mounts {
		at := joinPath(base, m.path)
		strip := strings.TrimSuffix(at, "/")
		mux.Handle(at+"/", http.StripPrefix(strip, m.app))
	}

	for _, raw := range r.raws {
		h := raw.handler
		for i := len(mw) - 1; i >= 0; i-- {
			h = mw[i](h)
		}
		mux.Handle(raw.pattern, h)
	}

	for _, child := range r.children {
		child.compileInto(mux, base, root, mw)
	}
}

// endpointTags resolves the tags for an endpoint: its own, else the
// router's, else a name derived from the router path.
func (r *Router) endpointTags(ep *Endpoint) []string {
	if len(ep.tags) > 0 {
		return ep.tags
	}
	if len(r.tags) > 0 {
		return r.tags
	}
	if name := strings.Trim(r.path, "/"); name != "" {
		return []string{name}
	}
	return nil
}

func configErrorHandler(err error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		slog.Error("router configuration error", "err", err)
		writeProblem(w, &ProblemDetail{
			Type:   "about:blank",
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
		})
	})
}

// joinPath composes a prefix and a sub-path. A prefix of "/" (or "")
// contributes nothing. An empty sub-path means "exactly the prefix"; a
// sub-path of "/" means "the prefix with a trailing slash"; the two
// are distinct routes and never collapse.
func joinPath(prefix, sub string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if sub == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	if !strings.HasPrefix(sub, "/") {
		sub = "/" + sub
	}
	return prefix + sub
}

// muxPattern converts an effective path to a ServeMux pattern.
// Trailing-slash paths pin to {$} so "/users/" does not swallow the
// whole subtree.
func muxPattern(p string) string {
	if strings.HasSuffix(p, "/") {
		return p + "{$}"
	}
	return p
}

// patternFor builds a mux pattern for a router-level handler.
func patternFor(base, sub string) string {
	return muxPattern(joinPath(base, sub))
}

// ListenAndServe starts an HTTP server on the given address. It blocks
// until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
