// Package apierrors contains the error types exchanged between services and HTTP handlers.
package apierrors

import (
	"encoding/json"
	"net/http"
)

// APIError represents an error that carries the HTTP status code the boundary should answer with.
type APIError struct {
	detail         string
	httpStatusCode int
}

// APIErrorOption determines the Functional Options used to create a new APIError.
type APIErrorOption func(apiError *APIError)

// WithDetail determines the detail message of the error.
func WithDetail(detail string) APIErrorOption {
	return func(apiError *APIError) {
		apiError.detail = detail
	}
}

// WithHTTPStatusCode determines the HTTP status code associated to the error.
func WithHTTPStatusCode(statusCode int) APIErrorOption {
	return func(apiError *APIError) {
		apiError.httpStatusCode = statusCode
	}
}

// NewAPIError creates a new APIError using the given options.
func NewAPIError(opts ...APIErrorOption) *APIError {
	apiError := &APIError{httpStatusCode: http.StatusInternalServerError}
	for _, opt := range opts {
		opt(apiError)
	}
	return apiError
}

// HTTPStatusCode gets the HTTP status code associated to the error.
func (a APIError) HTTPStatusCode() int {
	return a.httpStatusCode
}

func (a APIError) Error() string {
	return a.detail
}

func (a APIError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Detail string `json:"detail"`
	}{Detail: a.detail})
}

// ValidationError represents an error caused by an invalid field in the incoming payload.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field string, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (v ValidationError) Error() string {
	return v.Field + ": " + v.Reason
}
