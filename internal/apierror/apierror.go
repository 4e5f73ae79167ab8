// Package apierror holds the JSON bodies every handler answers errors with.
// Handlers build them here instead of echoing service or database errors.
package apierror

import "fmt"

// APIError is the body of every 4xx/5xx response: {"detail": "..."}.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Newf formats the detail like fmt.Sprintf.
func Newf(format string, args ...interface{}) *APIError {
	return &APIError{Detail: fmt.Sprintf(format, args...)}
}

// ValidationError is the 400 body of a rejected payload, one entry per field.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
