package tatami

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI    string              `json:"openapi" yaml:"openapi"`
	Info       OpenAPIInfo         `json:"info" yaml:"info"`
	Tags       []OpenAPITag        `json:"tags,omitempty" yaml:"tags,omitempty"`
	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components *Components         `json:"components,omitempty" yaml:"components,omitempty"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// OpenAPITag is a tag declared at the document level.
type OpenAPITag struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Components holds the shared schema definitions referenced by $ref.
type Components struct {
	Schemas map[string]JSONSchema `json:"schemas,omitempty" yaml:"schemas,omitempty"`
}

// PathItem maps HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses" yaml:"responses"`
	Deprecated  bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required" yaml:"required"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// OperationResp maps HTTP status codes to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description" yaml:"description"`
	Content     map[string]MediaObj `json:"content,omitempty" yaml:"content,omitempty"`
}

// Spec generates the OpenAPI 3.1 document for the full router tree.
// Generation reads the same classification the dispatcher uses, so the
// document and the runtime behavior cannot drift apart. The output is
// deterministic and rebuilding it is side-effect free.
func (r *Router) Spec() OpenAPISpec {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &specGen{
		root:    r,
		builder: newSchemaBuilder(),
	}

	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: OpenAPIInfo{
			Title:       r.title,
			Version:     r.version,
			Description: r.description,
		},
		Paths: make(map[string]PathItem),
	}

	g.walk(r, "", nil, &spec)

	if len(g.builder.schemas) > 0 {
		spec.Components = &Components{Schemas: g.builder.schemas}
	}
	spec.Tags = g.documentTags(spec.Paths)
	return spec
}

type specGen struct {
	root    *Router
	builder *schemaBuilder
}

// walk mirrors the compile traversal: same joined paths, same registry
// fallback, same tag resolution.
func (g *specGen) walk(r *Router, prefix string, parentReg *Registry, spec *OpenAPISpec) {
	base := joinPath(prefix, r.path)
	reg := r.registry
	if reg == nil {
		reg = parentReg
	}
	if reg == nil {
		reg = g.root.registry
	}

	eps, err := r.collectEndpoints()
	if err != nil {
		return
	}

	for _, ep := range eps {
		eff := joinPath(base, ep.path)
		op := g.operation(ep, eff, r.endpointTags(ep), reg)
		item, ok := spec.Paths[eff]
		if !ok {
			item = make(PathItem)
			spec.Paths[eff] = item
		}
		item[strings.ToLower(ep.method)] = op
	}

	for _, child := range r.children {
		g.walk(child, base, reg, spec)
	}
}

func (g *specGen) operation(ep *Endpoint, effPath string, tags []string, reg *Registry) Operation {
	op := Operation{
		Summary:     ep.summary,
		Description: ep.description,
		Tags:        tags,
		OperationID: snakeCase(ep.name),
		Deprecated:  ep.deprecated,
		Responses:   make(OperationResp),
	}
	if op.Summary == "" {
		op.Summary = humanizeName(ep.name)
	}

	spec, err := classify(ep.reqType, effPath, reg)
	if err == nil {
		op.Parameters = g.parameters(spec, reg)
		op.RequestBody = g.requestBody(spec, ep.method)
	}

	g.responses(ep, &op)
	return op
}

// parameters builds the path, query, and header parameters of an
// operation, including those carried transitively by injected
// dependencies. Injected factories may themselves declare request
// parameters; the client sees them flattened onto the operation.
func (g *specGen) parameters(spec *requestSpec, reg *Registry) []Parameter {
	var params []Parameter

	for _, p := range spec.params {
		switch p.kind {
		case kindPath, kindQuery, kindHeader:
			params = append(params, g.parameter(p))
		case kindInject:
			params = append(params, g.injectedParams(p.typ, reg, make(map[reflect.Type]bool))...)
		}
	}

	return dedupeParams(params)
}

func (g *specGen) parameter(p paramSpec) Parameter {
	out := Parameter{
		Name:   p.key,
		In:     p.kind.String(),
		Schema: g.builder.paramSchema(p),
	}
	if p.kind == kindPath || p.required {
		out.Required = true
	} else if p.typ.Kind() != reflect.Pointer && !p.hasDefault {
		out.Required = true
	}
	return out
}

// injectedParams flattens the request parameters a provider's factory
// consumes, recursively. seen breaks provider cycles.
func (g *specGen) injectedParams(t reflect.Type, reg *Registry, seen map[reflect.Type]bool) []Parameter {
	t = derefType(t)
	if seen[t] {
		return nil
	}
	seen[t] = true

	p := reg.lookup(t)
	if p == nil || !p.factory.IsValid() {
		return nil
	}

	var params []Parameter
	ft := p.factory.Type()
	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		switch {
		case in == contextType || in == httpRequestType || in == rawRequestType:
			// Ambient values, invisible on the wire.
		case reg.lookup(derefType(in)) != nil:
			params = append(params, g.injectedParams(in, reg, seen)...)
		case derefType(in).Kind() == reflect.Struct:
			sub, err := classify(derefType(in), "", reg)
			if err != nil {
				continue
			}
			for _, sp := range sub.params {
				switch sp.kind {
				case kindPath, kindQuery, kindHeader:
					params = append(params, g.parameter(sp))
				case kindInject:
					params = append(params, g.injectedParams(sp.typ, reg, seen)...)
				}
			}
		}
	}
	return params
}

// dedupeParams drops duplicate (in, name) pairs and sorts for stable
// output. Duplicates happen when two injected dependencies share a
// request parameter.
func dedupeParams(params []Parameter) []Parameter {
	type key struct{ in, name string }
	seen := make(map[key]bool, len(params))
	out := params[:0]
	for _, p := range params {
		k := key{in: p.In, name: p.Name}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].In != out[j].In {
			return out[i].In < out[j].In
		}
		return out[i].Name < out[j].Name
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func (g *specGen) requestBody(spec *requestSpec, method string) *RequestBody {
	if !bodyMethods[method] {
		return nil
	}
	bodySpecs := spec.byKind(kindBody)
	if len(bodySpecs) == 0 {
		return nil
	}

	var schema JSONSchema
	if len(bodySpecs) == 1 {
		schema = g.builder.typeToSchema(bodySpecs[0].typ)
	} else {
		schema = JSONSchema{Type: "object", Properties: make(map[string]JSONSchema)}
		for _, p := range bodySpecs {
			schema.Properties[p.key] = g.builder.typeToSchema(p.typ)
			if p.typ.Kind() != reflect.Pointer {
				schema.Required = append(schema.Required, p.key)
			}
		}
		sort.Strings(schema.Required)
	}

	required := true
	if len(bodySpecs) == 1 && bodySpecs[0].typ.Kind() == reflect.Pointer {
		required = false
	}

	return &RequestBody{
		Required: required,
		Content: map[string]MediaObj{
			"application/json": {Schema: &schema},
		},
	}
}

func (g *specGen) responses(ep *Endpoint, op *Operation) {
	status := ep.status
	if status == 0 {
		status = defaultStatus(ep.respType)
	}

	switch {
	case ep.respType == reflect.TypeFor[Void]():
		op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "No content"}

	case ep.kind != nil && ep.kind.contentType() != "application/json":
		op.Responses[strconv.Itoa(status)] = ResponseObj{
			Description: "Successful response",
			Content:     map[string]MediaObj{ep.kind.contentType(): {}},
		}

	default:
		schema := g.builder.typeToSchema(ep.respType)
		op.Responses[strconv.Itoa(status)] = ResponseObj{
			Description: "Successful response",
			Content: map[string]MediaObj{
				"application/json": {Schema: &schema},
			},
		}
	}

	problem := g.builder.typeToSchema(reflect.TypeFor[ProblemDetail]())
	op.Responses["422"] = ResponseObj{
		Description: "Validation error",
		Content: map[string]MediaObj{
			ProblemContentType: {Schema: &problem},
		},
	}
}

// documentTags collects every tag used by any operation, sorted.
func (g *specGen) documentTags(paths map[string]PathItem) []OpenAPITag {
	seen := make(map[string]bool)
	for _, item := range paths {
		for _, op := range item {
			for _, tag := range op.Tags {
				seen[tag] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	tags := make([]OpenAPITag, len(names))
	for i, name := range names {
		tags[i] = OpenAPITag{Name: name}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
