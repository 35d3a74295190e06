package handler

import (
	"encoding/json"
	"net/http"
)

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, j.status, j.body)
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

// WithStatus sets a custom HTTP status code.
func WithStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// JSON renders v as the response body, 200 unless overridden.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type errorBody struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// errorResponse defers to the ErrorHandler configured on Wrap.
type errorResponse struct {
	err error
}

// Error returns a Response that hands err to the ErrorHandler. Rendered
// outside of Wrap it writes the default JSON error body.
func Error(err error) Response {
	if err == nil {
		err = ErrInternalServerError
	}
	return &errorResponse{err: err}
}

func (e *errorResponse) Error() string { return e.err.Error() }
func (e *errorResponse) Unwrap() error { return e.err }

func (e *errorResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	info := classify(e.err)
	return writeJSON(w, info.StatusCode, info.body())
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
