// Package twerr defines the structured error value exchanged on the Twirp
// wire, the closed code taxonomy, and the bidirectional code ↔ HTTP status
// mapping.
//
// Every failure in the engine — routing miss, negotiation failure, decode
// failure, handler rejection, handler panic, transport failure — is
// normalized to an *Error before it crosses any boundary. On the wire an
// error is always a JSON object, regardless of the request's negotiated
// encoding:
//
//	{"code": "invalid_argument", "msg": "bad size", "meta": {}}
package twerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the kind of error. The set is closed — a code read off the
// wire that is not in this set degrades to Unknown rather than failing.
type Code string

const (
	Canceled           Code = "canceled"
	Unknown            Code = "unknown"
	InvalidArgument    Code = "invalid_argument"
	Malformed          Code = "malformed"
	DeadlineExceeded   Code = "deadline_exceeded"
	NotFound           Code = "not_found"
	BadRoute           Code = "bad_route"
	AlreadyExists      Code = "already_exists"
	PermissionDenied   Code = "permission_denied"
	Unauthenticated    Code = "unauthenticated"
	ResourceExhausted  Code = "resource_exhausted"
	FailedPrecondition Code = "failed_precondition"
	Aborted            Code = "aborted"
	OutOfRange         Code = "out_of_range"
	Unimplemented      Code = "unimplemented"
	Internal           Code = "internal"
	Unavailable        Code = "unavailable"
	DataLoss           Code = "data_loss"
)

// statusByCode is the canonical code → HTTP status mapping. It is total over
// the closed code set and must never change: clients in other languages
// depend on the exact numbers.
var statusByCode = map[Code]int{
	Canceled:           http.StatusRequestTimeout,
	Unknown:            http.StatusInternalServerError,
	InvalidArgument:    http.StatusBadRequest,
	Malformed:          http.StatusBadRequest,
	DeadlineExceeded:   http.StatusRequestTimeout,
	NotFound:           http.StatusNotFound,
	BadRoute:           http.StatusNotFound,
	AlreadyExists:      http.StatusConflict,
	PermissionDenied:   http.StatusForbidden,
	Unauthenticated:    http.StatusUnauthorized,
	ResourceExhausted:  http.StatusForbidden,
	FailedPrecondition: http.StatusPreconditionFailed,
	Aborted:            http.StatusConflict,
	OutOfRange:         http.StatusBadRequest,
	Unimplemented:      http.StatusNotImplemented,
	Internal:           http.StatusInternalServerError,
	Unavailable:        http.StatusServiceUnavailable,
	DataLoss:           http.StatusInternalServerError,
}

// Valid reports whether c is one of the closed code set.
func (c Code) Valid() bool {
	_, ok := statusByCode[c]
	return ok
}

// ServerHTTPStatus returns the HTTP status the server writes for a code.
// Codes outside the closed set are treated as Unknown (500).
func ServerHTTPStatus(c Code) int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is the structured error value. It is immutable once constructed:
// WithMeta returns a copy, and MetaMap returns a copy of the meta map.
type Error struct {
	code Code
	msg  string
	meta map[string]string
}

// New constructs an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf constructs an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Shorthand constructors for the codes the engine itself produces.

func Internalf(format string, args ...any) *Error    { return Newf(Internal, format, args...) }
func Malformedf(format string, args ...any) *Error   { return Newf(Malformed, format, args...) }
func BadRoutef(format string, args ...any) *Error    { return Newf(BadRoute, format, args...) }
func Unavailablef(format string, args ...any) *Error { return Newf(Unavailable, format, args...) }
func Canceledf(format string, args ...any) *Error    { return Newf(Canceled, format, args...) }

// Code returns the error code.
func (e *Error) Code() Code { return e.code }

// Msg returns the human-readable message.
func (e *Error) Msg() string { return e.msg }

// Meta returns the value for a meta key, or "" if absent.
func (e *Error) Meta(key string) string { return e.meta[key] }

// MetaMap returns a copy of the meta map, never nil.
func (e *Error) MetaMap() map[string]string {
	out := make(map[string]string, len(e.meta))
	for k, v := range e.meta {
		out[k] = v
	}
	return out
}

// WithMeta returns a copy of the error with one additional meta entry.
// The receiver is not modified.
func (e *Error) WithMeta(key, value string) *Error {
	meta := make(map[string]string, len(e.meta)+1)
	for k, v := range e.meta {
		meta[k] = v
	}
	meta[key] = value
	return &Error{code: e.code, msg: e.msg, meta: meta}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("twirp error %s: %s", e.code, e.msg)
}

// FromError normalizes any error to an *Error.
//
//   - *Error values pass through unchanged
//   - context cancellation maps to Canceled / DeadlineExceeded
//   - everything else becomes Internal carrying the error text
func FromError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.Canceled) {
		return New(Canceled, "request canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(DeadlineExceeded, "deadline exceeded")
	}
	return New(Internal, err.Error())
}
