package transport

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	dErrors "diagflow/pkg/domain-errors"
)

// Response is a fully-read backend response.
type Response struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

// StatusError reports a response whose status was not among the accepted codes.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Status, truncate(e.Body, 256))
}

func (e *StatusError) ErrorCode() dErrors.Code { return dErrors.CodeHTTPStatus }

// Expect fails unless the status is one of codes.
func (r *Response) Expect(codes ...int) error {
	if slices.Contains(codes, r.Status) {
		return nil
	}
	return &StatusError{Method: r.Method, Path: r.Path, Status: r.Status, Body: string(r.Body)}
}

// Get evaluates a gjson path against the body.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// ExpectSuccess requires a top-level "success": true envelope.
func (r *Response) ExpectSuccess() error {
	if !r.Get("success").Bool() {
		return r.shapeError("success flag is not true")
	}
	return nil
}

// Array returns the elements at path, failing if the value is not an array.
func (r *Response) Array(path string) ([]gjson.Result, error) {
	v := r.Get(path)
	if !v.IsArray() {
		return nil, r.shapeError(fmt.Sprintf("%q is not an array", path))
	}
	return v.Array(), nil
}

// RequireString returns the string at path, failing if it is absent or blank.
func (r *Response) RequireString(path string) (string, error) {
	v := r.Get(path)
	if !v.Exists() || strings.TrimSpace(v.String()) == "" {
		return "", r.shapeError(fmt.Sprintf("%q is missing", path))
	}
	return v.String(), nil
}

// FirstString returns the first non-blank string among paths.
func (r *Response) FirstString(paths ...string) (string, error) {
	for _, p := range paths {
		if s, err := r.RequireString(p); err == nil {
			return s, nil
		}
	}
	return "", r.shapeError(fmt.Sprintf("none of %v present", paths))
}

func (r *Response) shapeError(msg string) error {
	return dErrors.Newf(dErrors.CodePayloadShape, "%s %s: %s", r.Method, r.Path, msg)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
