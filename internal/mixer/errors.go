package mixer

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeExists        = "EXISTS"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInvalidName   = "INVALID_NAME"
	ErrCodeInvalidParams = "INVALID_PARAMS"
	ErrCodeEngine        = "ENGINE_ERROR"
	ErrCodePartialUpdate = "PARTIAL_UPDATE"
	ErrCodeUnknown       = "UNKNOWN"
)

// Kinds of objects an error refers to.
const (
	KindMixer  = "mixer"
	KindInput  = "input"
	KindOutput = "output"
)

// Error is a domain error carrying a code and the object it refers to.
type Error struct {
	Code    string
	Kind    string
	Name    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage(e.Code, e.Kind, e.Name)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func defaultMessage(code, kind, name string) string {
	switch code {
	case ErrCodeExists:
		return fmt.Sprintf("%s %q already exists", kind, name)
	case ErrCodeNotFound:
		return fmt.Sprintf("%s %q not found", kind, name)
	case ErrCodeInvalidName:
		return fmt.Sprintf("invalid %s name %q", kind, name)
	default:
		return "operation failed"
	}
}

// NewError creates a new domain error.
func NewError(code, kind, name, message string, cause error) *Error {
	return &Error{Code: code, Kind: kind, Name: name, Message: message, Cause: cause}
}

// ErrExists reports a name collision.
func ErrExists(kind, name string) *Error {
	return &Error{Code: ErrCodeExists, Kind: kind, Name: name}
}

// ErrNotFound reports a missing object.
func ErrNotFound(kind, name string) *Error {
	return &Error{Code: ErrCodeNotFound, Kind: kind, Name: name}
}

// ErrInvalidName reports a name failing the identifier grammar.
func ErrInvalidName(kind, name string) *Error {
	return &Error{Code: ErrCodeInvalidName, Kind: kind, Name: name}
}

// ErrInvalidParams reports rejected parameters.
func ErrInvalidParams(kind, name string, cause error) *Error {
	return &Error{Code: ErrCodeInvalidParams, Kind: kind, Name: name, Message: "invalid parameters", Cause: cause}
}

// ErrEngine wraps a media engine failure.
func ErrEngine(kind, name, message string, cause error) *Error {
	return &Error{Code: ErrCodeEngine, Kind: kind, Name: name, Message: message, Cause: cause}
}

// CodeOf returns the code of a domain error, or ErrCodeUnknown.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
