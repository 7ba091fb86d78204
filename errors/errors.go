// Package errors provides errors that carry a gRPC status code, an optional
// public message, and an HTTP status mapping. Portal code uses these to keep
// the internal failure detail separate from what is rendered to the user.
//
// The type *Error implements the standard error interface, so it can be used
// interchangeably with code that expects a normal error return. Use Code and
// HTTPStatusCode to classify arbitrary errors at a boundary.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is an error with an associated status code and optional public
// message. It can be used wherever the builtin error interface is expected.
type Error struct {
	err    error
	prefix string

	// gRPC status code to associate with an error response.
	code codes.Code

	// HTTP status code to associate with an error response, overriding the
	// mapping derived from code.
	httpStatusCode int

	// Error message safe to return to the user.
	publicMessage string
}

// New makes an Error from the given message with an Unknown code.
func New(msg string) *Error {
	return NewC(msg, codes.Unknown)
}

// NewC makes an Error with a status code defined.
func NewC(msg string, code codes.Code) *Error {
	return &Error{
		err:  stderrors.New(msg),
		code: code,
	}
}

// Codef makes an Error with a status code and a formatted message.
func Codef(code codes.Code, format string, a ...interface{}) *Error {
	return &Error{
		err:  fmt.Errorf(format, a...),
		code: code,
	}
}

// Errorf creates a new error with the given message. You can use it as a
// drop-in replacement for fmt.Errorf() to provide descriptive errors in
// return values.
func Errorf(format string, a ...interface{}) *Error {
	return &Error{
		err:  fmt.Errorf(format, a...),
		code: codes.Unknown,
	}
}

// Wrap makes an Error from the given error. If the value is already an
// *Error it is returned directly, preserving its code and messages.
func Wrap(e error) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		return err
	}
	return &Error{
		err:  e,
		code: codes.Unknown,
	}
}

// Mark returns a copy of the given *Error so that sentinel errors can be
// annotated without mutating the shared value. The copy wraps the original,
// so Is(Mark(sentinel), sentinel) holds. Non-*Error values are wrapped.
func Mark(e error) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		clone := *err
		clone.err = err
		return &clone
	}
	return Wrap(e)
}

// Error returns the underlying error's message.
func (err *Error) Error() string {
	msg := err.err.Error()
	if err.prefix != "" {
		msg = fmt.Sprintf("%s: %s", err.prefix, msg)
	}
	return msg
}

// Append adds a prefix to the error message when calling Error().
func (err *Error) Append(prefix string) *Error {
	if err.prefix != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, err.prefix)
	}
	err.prefix = prefix
	return err
}

// Unwrap the error (implements api for the As and Is functions).
func (err *Error) Unwrap() error {
	return err.err
}

// Code returns the gRPC status code associated with the error.
func (err *Error) Code() codes.Code {
	return err.code
}

// WithCode sets the gRPC status code associated with the error.
func (err *Error) WithCode(code codes.Code) *Error {
	err.code = code
	return err
}

// PublicMessage returns the error string that should be shown to the user.
func (err *Error) PublicMessage() string {
	if err.publicMessage != "" {
		return err.publicMessage
	}
	return err.Error()
}

// WithPublicMessage sets the error string that should be shown to the user.
func (err *Error) WithPublicMessage(publicMessage string) *Error {
	err.publicMessage = publicMessage
	return err
}

// HTTPStatusCode returns the HTTP status code that should be returned to the
// client. If a code was set explicitly it is used, otherwise a default is
// derived from the gRPC code.
func (err *Error) HTTPStatusCode() int {
	if err.httpStatusCode != 0 {
		return err.httpStatusCode
	}
	return httpStatusFromCode(err.code)
}

// WithHTTPStatusCode sets an explicit HTTP status code, overriding the one
// mapped from the gRPC code.
func (err *Error) WithHTTPStatusCode(code int) *Error {
	err.httpStatusCode = code
	return err
}

// GRPCStatus returns a gRPC status object for the error.
func (err *Error) GRPCStatus() *status.Status {
	return status.New(err.Code(), err.PublicMessage())
}

// Code returns a gRPC status code for an error. If the error is nil, it
// returns codes.OK. If the error exposes a `Code()` method, that is returned.
// Otherwise codes.Unknown is returned.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var coded codedError
	if As(err, &coded) {
		return coded.Code()
	}
	return codes.Unknown
}

// HTTPStatusCode returns an HTTP status code for an error. If the error is
// nil, it returns http.StatusOK. If the error exposes a `HTTPStatusCode()`
// method, that is returned. Otherwise http.StatusInternalServerError.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var h httpError
	if As(err, &h) {
		return h.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

// Is reports whether any error in err's chain matches target. Re-exported so
// callers don't need to import both this package and the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type codedError interface {
	Code() codes.Code
}

type httpError interface {
	HTTPStatusCode() int
}
