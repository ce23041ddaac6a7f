package tatami

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// EndpointSource contributes endpoints to a router beyond those
// declared explicitly. Convention is the built-in implementation.
type EndpointSource interface {
	collectEndpoints() ([]*Endpoint, error)
}

var verbMethodPattern = regexp.MustCompile(`^(Get|Post|Put|Patch|Delete|Head|Options)([A-Z].*)?$`)

// conventionSource discovers endpoints from the methods of a receiver
// value. Any exported method whose name starts with an HTTP verb and
// whose signature matches func(context.Context, *Req) (*Resp, error)
// becomes an endpoint; the rest of the method name becomes the path.
type conventionSource struct {
	recv any
}

// Convention returns an endpoint source that derives endpoints from the
// receiver's verb-prefixed methods. GetPost serves GET /post,
// GetPostByPostID serves GET /post/{post_id}, Post alone serves
// POST "".
func Convention(recv any) EndpointSource {
	return conventionSource{recv: recv}
}

func (c conventionSource) collectEndpoints() ([]*Endpoint, error) {
	rv := reflect.ValueOf(c.recv)
	rt := rv.Type()

	var eps []*Endpoint
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		match := verbMethodPattern.FindStringSubmatch(m.Name)
		if match == nil {
			continue
		}
		ep, err := conventionEndpoint(rv.Method(i), strings.ToUpper(match[1]), match[2], m.Name, rt)
		if err != nil {
			return nil, err
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// conventionEndpoint validates one method's signature and builds its
// endpoint with a reflective invoker.
func conventionEndpoint(fn reflect.Value, verb, rest, name string, recv reflect.Type) (*Endpoint, error) {
	ft := fn.Type()
	if ft.NumIn() != 2 || ft.NumOut() != 2 ||
		ft.In(0) != contextType ||
		ft.In(1).Kind() != reflect.Pointer || ft.In(1).Elem().Kind() != reflect.Struct ||
		ft.Out(0).Kind() != reflect.Pointer ||
		ft.Out(1) != errorType {
		return nil, fmt.Errorf("tatami: method %s.%s does not match func(context.Context, *Req) (*Resp, error)", recv, name)
	}

	reqType := ft.In(1).Elem()
	respType := ft.Out(0).Elem()

	ep := &Endpoint{
		method:   verb,
		path:     conventionPath(rest),
		name:     name,
		summary:  humanizeName(name),
		reqType:  reqType,
		respType: respType,
		status:   defaultStatus(respType),
		newReq: func() any {
			return reflect.New(reqType).Interface()
		},
		invoke: func(ctx context.Context, req any) (any, error) {
			out := fn.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(req)})
			var err error
			if !out[1].IsNil() {
				err = out[1].Interface().(error)
			}
			if out[0].IsNil() {
				return nil, err
			}
			return out[0].Interface(), err
		},
	}
	return ep, nil
}

// conventionPath turns the post-verb part of a method name into a path.
// Camel words become lowercase segments; a "By" word starts a path
// parameter named by the snake_cased remainder. An empty name maps to
// the router root ("").
func conventionPath(rest string) string {
	if rest == "" {
		return ""
	}
	words := splitCamel(rest)
	var segs []string
	for i := 0; i < len(words); i++ {
		if words[i] == "By" && i+1 < len(words) {
			param := snakeCase(strings.Join(words[i+1:], ""))
			segs = append(segs, "{"+param+"}")
			break
		}
		segs = append(segs, strings.ToLower(words[i]))
	}
	return "/" + strings.Join(segs, "/")
}
