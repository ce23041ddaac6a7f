package tatami

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
)

// Scope is the lifetime policy for an injected dependency.
type Scope int

const (
	// ScopeSingleton resolves at most once per process: the first
	// resolution computes and caches the instance, later resolutions
	// return it, even across unrelated requests and call paths.
	ScopeSingleton Scope = iota
	// ScopeRequest resolves once per inbound request. Within one
	// request the instance is memoized, so two injection sites share
	// it; distinct requests get distinct instances.
	ScopeRequest
)

func (s Scope) String() string {
	if s == ScopeRequest {
		return "request"
	}
	return "singleton"
}

// errValidation signals that dependency resolution failed because a
// factory's request-sourced parameters did not validate; the field
// errors were already collected by the caller.
var errValidation = errors.New("tatami: dependency parameter validation failed")

// provider holds the registration for one injectable type. The
// singleton slot is mutable shared state: the first write is guarded by
// the mutex so exactly one instantiation happens per process even on a
// parallel host.
type provider struct {
	typ     reflect.Type
	scope   Scope
	factory reflect.Value // zero when the type constructs from nothing

	mu        sync.Mutex
	singleton any
	resolved  bool
}

// Registry holds the injectable types known to a router tree. It is
// populated at application construction time and read at dispatch time.
type Registry struct {
	mu        sync.RWMutex
	providers map[reflect.Type]*provider
}

// NewRegistry creates an empty dependency registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[reflect.Type]*provider)}
}

func (r *Registry) lookup(t reflect.Type) *provider {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[t]
}

// ProvideOption configures a provider registration.
type ProvideOption func(*provider)

// InScope sets the provider's scope. The default is ScopeSingleton.
func InScope(s Scope) ProvideOption {
	return func(p *provider) { p.scope = s }
}

// Provide registers T as injectable. The factory may be nil, in which
// case T is constructed as its zero value; otherwise it must be a
// function returning (T) or (T, error) whose own parameters are
// resolved through the same pipeline as handler parameters:
// context.Context, *http.Request, RawRequest, other injectable types,
// or a tagged request struct bound from the same inbound request.
//
// Registering the same type twice, or an invalid factory, is a
// configuration mistake and panics.
func Provide[T any](reg *Registry, factory any, opts ...ProvideOption) {
	t := reflect.TypeFor[T]()

	p := &provider{typ: t, scope: ScopeSingleton}
	for _, opt := range opts {
		opt(p)
	}

	if factory != nil {
		fv := reflect.ValueOf(factory)
		ft := fv.Type()
		if ft.Kind() != reflect.Func || ft.NumOut() < 1 || ft.NumOut() > 2 || ft.Out(0) != t {
			panic(fmt.Sprintf("tatami: factory for %s must be func(...) (%s) or func(...) (%s, error)", t, t, t))
		}
		if ft.NumOut() == 2 && ft.Out(1) != reflect.TypeFor[error]() {
			panic(fmt.Sprintf("tatami: factory for %s: second return value must be error", t))
		}
		p.factory = fv
	} else if derefType(t).Kind() != reflect.Struct {
		panic(fmt.Sprintf("tatami: %s needs a factory: only struct types construct from nothing", t))
	}

	key := derefType(t)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, dup := reg.providers[key]; dup {
		panic(fmt.Sprintf("tatami: conflicting providers for %s", key))
	}
	reg.providers[key] = p
}

// resolution is the per-dispatch context for dependency resolution: it
// carries the inbound request, the per-request memo, the factory stack
// for cycle detection, and the shared validation-error sink.
type resolution struct {
	registry *Registry
	req      *http.Request
	memo     map[reflect.Type]any
	stack    []reflect.Type
	errs     *[]*FieldError
}

func newResolution(reg *Registry, req *http.Request, errs *[]*FieldError) *resolution {
	return &resolution{
		registry: reg,
		req:      req,
		memo:     make(map[reflect.Type]any),
		errs:     errs,
	}
}

// resolve produces an instance of t for the current request. A missing
// provider or a factory cycle is a configuration error.
func (res *resolution) resolve(t reflect.Type) (any, error) {
	key := derefType(t)

	p := res.registry.lookup(key)
	if p == nil {
		return nil, fmt.Errorf("tatami: no provider registered for %s", t)
	}

	for _, on := range res.stack {
		if on == key {
			return nil, fmt.Errorf("tatami: dependency cycle resolving %s", t)
		}
	}

	if p.scope == ScopeSingleton {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.resolved {
			return p.singleton, nil
		}
		v, err := res.build(p)
		if err != nil {
			return nil, err
		}
		p.singleton = v
		p.resolved = true
		return v, nil
	}

	if v, ok := res.memo[key]; ok {
		return v, nil
	}
	v, err := res.build(p)
	if err != nil {
		return nil, err
	}
	res.memo[key] = v
	return v, nil
}

// build instantiates a provider, resolving the factory's own
// parameters recursively.
func (res *resolution) build(p *provider) (any, error) {
	if !p.factory.IsValid() {
		if p.typ.Kind() == reflect.Pointer {
			return reflect.New(p.typ.Elem()).Interface(), nil
		}
		return reflect.New(p.typ).Elem().Interface(), nil
	}

	res.stack = append(res.stack, derefType(p.typ))
	defer func() { res.stack = res.stack[:len(res.stack)-1] }()

	ft := p.factory.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range ft.NumIn() {
		arg, err := res.resolveArg(ft.In(i))
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	out := p.factory.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// resolveArg resolves one factory parameter.
func (res *resolution) resolveArg(t reflect.Type) (reflect.Value, error) {
	switch {
	case t == reflect.TypeFor[context.Context]():
		if res.req != nil {
			return reflect.ValueOf(res.req.Context()), nil
		}
		return reflect.ValueOf(context.Background()), nil
	case t == httpRequestType:
		return reflect.ValueOf(res.req), nil
	case t == rawRequestType:
		return reflect.ValueOf(RawRequest{Request: res.req}), nil
	}

	if res.registry.lookup(derefType(t)) != nil {
		v, err := res.resolve(t)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}

	// A request-spec struct: its fields are classified and bound from
	// the same inbound request as the endpoint that depends on it.
	if derefType(t).Kind() == reflect.Struct {
		return res.bindParamStruct(t)
	}

	return reflect.Value{}, fmt.Errorf("tatami: cannot resolve factory parameter of type %s", t)
}

// bindParamStruct binds a factory's request-spec parameter. Validation
// failures are collected into the dispatch's error sink and surface as
// errValidation so the dispatcher reports them as a 422, not a 500.
func (res *resolution) bindParamStruct(t reflect.Type) (reflect.Value, error) {
	st := derefType(t)
	spec, err := classify(st, "", res.registry)
	if err != nil {
		return reflect.Value{}, err
	}

	target := reflect.New(st)
	var errs []*FieldError
	if err := bindParams(target.Elem(), spec, res, &errs); err != nil {
		return reflect.Value{}, err
	}
	if len(errs) > 0 {
		*res.errs = append(*res.errs, errs...)
		return reflect.Value{}, errValidation
	}

	if t.Kind() == reflect.Pointer {
		return target, nil
	}
	return target.Elem(), nil
}
