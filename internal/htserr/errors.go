// Package htserr defines the error taxonomy shared by every layer of the
// htsget core, and the mapping of that taxonomy onto HTTP status codes.
package htserr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the buckets spec.md §7 maps to a
// status code.
type Kind string

const (
	NotFound           Kind = "NotFound"
	UnsupportedFormat  Kind = "UnsupportedFormat"
	InvalidInput       Kind = "InvalidInput"
	InvalidRange       Kind = "InvalidRange"
	IOError            Kind = "IoError"
	ParseError         Kind = "ParseError"
	InternalError      Kind = "InternalError"
	KeyNotFound        Kind = "KeyNotFound"
	AwsS3Error         Kind = "AwsS3Error"
	URLParseError      Kind = "UrlParseError"
	ResponseError      Kind = "ResponseError"
)

// Error is the typed error carried through the core. It wraps an
// underlying cause (if any) and tags it with a Kind so that adapters can
// map it to a protocol-level status without inspecting error strings.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// As extracts an *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, defaulting to InternalError for errors
// that were never classified. This is the storage→core mapping rule of
// spec.md §4.9: a storage KeyNotFound becomes a core NotFound, storage
// input errors (URLParseError, ResponseError) become InvalidInput, an
// AwsS3Error becomes IOError, and every other kind is returned unchanged.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	e, ok := As(err)
	if !ok {
		return InternalError
	}
	switch e.Kind {
	case KeyNotFound:
		return NotFound
	case URLParseError, ResponseError:
		return InvalidInput
	case AwsS3Error:
		return IOError
	default:
		return e.Kind
	}
}

// StatusCode maps a Kind to the HTTP status code of spec.md §6.1/§7.
func StatusCode(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case InvalidInput, InvalidRange, UnsupportedFormat:
		return http.StatusBadRequest
	case IOError, InternalError, ParseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// StatusCodeForError is a convenience wrapper combining KindOf and
// StatusCode for an arbitrary error value.
func StatusCodeForError(err error) int {
	return StatusCode(KindOf(err))
}
