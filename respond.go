package tatami

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
)

// renderState carries everything a response kind needs to write a
// result: the inbound request (for content negotiation), the handler
// name (for template probing), and the endpoint's default status.
type renderState struct {
	req          *http.Request
	handlerName  string
	templatesDir string
	codecs       *codecRegistry
	status       int
}

// ResponseKind writes a handler result to the wire in one particular
// shape. The built-in kinds are JSON, HTML, Template, and Stream; the
// zero value (no kind) selects per-result wrapping.
type ResponseKind interface {
	contentType() string
	write(w http.ResponseWriter, st *renderState, result any) error
}

// JSON serializes the result through the negotiated codec, defaulting
// to application/json.
type JSON struct{}

func (JSON) contentType() string { return "application/json" }

func (JSON) write(w http.ResponseWriter, st *renderState, result any) error {
	return writeEncoded(w, st, result)
}

// HTML writes the result as text/html. String and []byte results pass
// through verbatim; anything else is rendered with fmt.
type HTML struct{}

func (HTML) contentType() string { return "text/html" }

func (HTML) write(w http.ResponseWriter, st *renderState, result any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(st.status)
	if rv := reflect.ValueOf(result); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		result = rv.Elem().Interface()
	}
	switch v := result.(type) {
	case string:
		_, err := io.WriteString(w, v)
		return err
	case []byte:
		_, err := w.Write(v)
		return err
	default:
		_, err := fmt.Fprint(w, v)
		return err
	}
}

// Template renders the result through a named template file in the
// router's templates directory, with the result as the template data.
type Template struct {
	Name string
}

func (Template) contentType() string { return "text/html" }

func (t Template) write(w http.ResponseWriter, st *renderState, result any) error {
	path := filepath.Join(st.templatesDir, t.Name)
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(st.status)
	return tmpl.Execute(w, result)
}

// Stream copies an io.Reader result to the client with the given
// content type (application/octet-stream when empty).
type Stream struct {
	ContentType string
}

func (s Stream) contentType() string {
	if s.ContentType == "" {
		return "application/octet-stream"
	}
	return s.ContentType
}

func (s Stream) write(w http.ResponseWriter, st *renderState, result any) error {
	rd, ok := result.(io.Reader)
	if !ok {
		if rv := reflect.ValueOf(result); rv.Kind() == reflect.Pointer && !rv.IsNil() {
			rd, ok = rv.Elem().Interface().(io.Reader)
		}
		if !ok {
			return fmt.Errorf("tatami: stream response requires io.Reader, got %T", result)
		}
	}
	w.Header().Set("Content-Type", s.contentType())
	w.WriteHeader(st.status)
	_, err := io.Copy(w, rd)
	if c, isCloser := rd.(io.Closer); isCloser {
		c.Close()
	}
	return err
}

// templateExtensions, in probe order.
var templateExtensions = []string{".tmpl", ".gohtml", ".html"}

// wrapResponse applies the default wrapping policy when an endpoint
// declares no explicit response kind. In order: redirects and typed
// status results are honored first; a struct or map result serializes
// through the negotiated codec; a template file named after the handler
// renders the result; an io.Reader streams; everything else serializes
// too.
func wrapResponse(w http.ResponseWriter, st *renderState, result any) {
	if r, ok := result.(*Redirect); ok && r != nil {
		status := r.Status
		if status == 0 {
			status = http.StatusSeeOther
		}
		http.Redirect(w, st.req, r.URL, status)
		return
	}
	if sc, ok := result.(StatusCoder); ok {
		st.status = sc.StatusCode()
	}
	if result == nil || isVoid(result) {
		w.WriteHeader(st.status)
		return
	}

	rt := derefType(reflect.TypeOf(result))
	if rt.Kind() == reflect.Struct || rt.Kind() == reflect.Map {
		if err := writeEncoded(w, st, result); err != nil {
			slog.Error("response encode failed", "handler", st.handlerName, "err", err)
		}
		return
	}

	if name, ok := probeTemplate(st.templatesDir, st.handlerName); ok {
		if err := (Template{Name: name}).write(w, st, result); err != nil {
			slog.Error("template render failed", "handler", st.handlerName, "err", err)
		}
		return
	}

	if _, ok := result.(io.Reader); ok {
		if err := (Stream{}).write(w, st, result); err != nil {
			slog.Error("stream write failed", "handler", st.handlerName, "err", err)
		}
		return
	}

	if err := writeEncoded(w, st, result); err != nil {
		slog.Error("response encode failed", "handler", st.handlerName, "err", err)
	}
}

func isVoid(result any) bool {
	_, ok := result.(*Void)
	return ok
}

// probeTemplate looks for a template file named after the handler in
// the templates directory, trying each known extension in order.
func probeTemplate(dir, handler string) (string, bool) {
	if dir == "" || handler == "" {
		return "", false
	}
	base := snakeCase(handler)
	for _, ext := range templateExtensions {
		name := base + ext
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return name, true
		}
	}
	return "", false
}

// writeEncoded serializes the result through the encoder negotiated
// from the Accept header. An unsatisfiable Accept yields 406.
func writeEncoded(w http.ResponseWriter, st *renderState, result any) error {
	enc, ok := st.codecs.negotiate(st.req.Header.Get("Accept"))
	if !ok {
		writeProblem(w, &ProblemDetail{
			Type:   "about:blank",
			Title:  http.StatusText(http.StatusNotAcceptable),
			Status: http.StatusNotAcceptable,
			Detail: fmt.Sprintf("no encoder satisfies Accept %q", st.req.Header.Get("Accept")),
		})
		return nil
	}
	payload := result
	switch enc.(type) {
	case jsonCodec, msgpackCodec:
		// Map-shaped output with the cycle guard applied. XML and other
		// codecs take the value as-is since they cannot encode maps.
		payload = serializable(result)
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(st.status)
	return enc.Encode(w, payload)
}
