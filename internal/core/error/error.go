package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing key in Redis.
	RedisNotFoundMessage = "redis key not found"
	// EndpointErrorMessage describes an empty or unparseable server endpoint.
	EndpointErrorMessage = "invalid server endpoint"
	// TransportErrorMessage describes a failed round trip to the model server.
	TransportErrorMessage = "completion request failed"
	// DecodeErrorMessage describes a response body that does not match the
	// expected completion shape, or a request body that could not be encoded.
	DecodeErrorMessage = "completion payload malformed"
)

// Error wraps an underlying error with an HTTP-ish status and safe message.
type Error struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(err error, status int, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the Error itself.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return other.Message == e.Message
	}
	return errors.Is(e.Err, target)
}

// As allows casting to Error or the wrapped error in a chain.
func (e *Error) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}
	return false
}

// IsDecode reports whether err was classified as a payload decode failure.
func IsDecode(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Message == DecodeErrorMessage
}

// IsEndpoint reports whether err was classified as an endpoint failure.
func IsEndpoint(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Message == EndpointErrorMessage
}

// WrapEndpoint wraps an endpoint validation failure.
func WrapEndpoint(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadRequest, EndpointErrorMessage)
}

// WrapTransport wraps a network-level failure reaching the model server.
func WrapTransport(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, TransportErrorMessage)
}

// WrapDecode wraps an encode/decode failure of the completion payload.
func WrapDecode(err error) *Error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, DecodeErrorMessage)
}
