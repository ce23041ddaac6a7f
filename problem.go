package tatami

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ProblemContentType is the media type for RFC 9457 problem responses.
const ProblemContentType = "application/problem+json"

const validationProblemType = "https://datatracker.ietf.org/doc/html/rfc7807#section-3"

// ProblemDetail is an RFC 9457 problem details response. Validation
// failures carry either the single-error field set or, for multiple
// failures, the validation_errors array with a total count.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Field        string   `json:"field,omitempty"`
	FieldPath    []string `json:"field_path,omitempty"`
	InputValue   any      `json:"input_value,omitempty"`
	ExpectedType string   `json:"expected_type,omitempty"`

	ValidationErrors []*FieldError `json:"validation_errors,omitempty"`
	TotalErrors      int           `json:"total_errors,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement
// StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// validationProblem folds collected field errors into one 422 problem.
// A single failure is reported inline; multiple failures use the
// validation_errors array plus an aggregate detail naming every field.
func validationProblem(errs []*FieldError) *ProblemDetail {
	if len(errs) == 1 {
		e := errs[0]
		return &ProblemDetail{
			Type:         validationProblemType,
			Title:        "Validation Error",
			Status:       http.StatusUnprocessableEntity,
			Detail:       fmt.Sprintf("Field '%s' failed validation: %s", e.Field, e.Message),
			Field:        e.Field,
			FieldPath:    e.FieldPath,
			InputValue:   e.InputValue,
			ExpectedType: e.ExpectedType,
		}
	}

	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return &ProblemDetail{
		Type:             validationProblemType,
		Title:            "Multiple Validation Errors",
		Status:           http.StatusUnprocessableEntity,
		Detail:           fmt.Sprintf("Validation failed for %d field(s): %s", len(errs), strings.Join(fields, ", ")),
		ValidationErrors: errs,
		TotalErrors:      len(errs),
	}
}

// writeProblem writes a problem details response.
func writeProblem(w http.ResponseWriter, p *ProblemDetail) {
	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(p.Status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(p)
}

// writeErrorResponse writes a handler error as a problem response.
// ProblemDetail errors pass through; anything else gets a generic
// problem for its status code with a unique instance ID.
func writeErrorResponse(w http.ResponseWriter, err error) {
	var p *ProblemDetail
	if errors.As(err, &p) {
		writeProblem(w, p)
		return
	}

	status := ErrorStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay out of the response.
		detail = ""
	}
	writeProblem(w, &ProblemDetail{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: uuid.NewString(),
	})
}
