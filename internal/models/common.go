package models

import "errors"

var (
	// ErrNotFound is returned by stores when the requested row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique user attribute is taken
	ErrAlreadyExists = errors.New("already exists")
)

// ErrorResponse is a standardized error response for API
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Optional returns nil for an empty string so nullable columns stay NULL
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
