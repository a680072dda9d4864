package client

import (
	"fmt"

	"github.com/menta2k/image-captioner/pkg/types"
)

// ErrorKind classifies backend failures.
type ErrorKind int

const (
	// KindAuth means a missing or rejected credential.
	KindAuth ErrorKind = iota
	// KindUnavailable means the backend could not be reached.
	KindUnavailable
	// KindResponse means the backend returned a malformed or empty response.
	KindResponse
	// KindTimeout means the call exceeded its deadline.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindUnavailable:
		return "unavailable"
	case KindResponse:
		return "response"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a typed backend failure carrying enough context to attribute
// the error to a backend and model.
type Error struct {
	Kind    ErrorKind
	Backend types.Backend
	Model   string
	Err     error
}

// NewError builds a backend error.
func NewError(kind ErrorKind, backend types.Backend, model string, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Model: model, Err: err}
}

func (e *Error) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s backend (%s, model %s): %v", e.Backend, e.Kind, e.Model, e.Err)
	}
	return fmt.Sprintf("%s backend (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
