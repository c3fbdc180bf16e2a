// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindInvalidEnumValue
	KindNotFound
	KindCompanyNotFound
	KindEmailNotAuthorized
	KindUpstreamUnavailable
	KindInternal
)

func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindEmailNotAuthorized:
		return http.StatusForbidden
	case KindInvalidEnumValue:
		return http.StatusBadRequest
	case KindNotFound, KindCompanyNotFound:
		return http.StatusNotFound
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) Code() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalidEnumValue:
		return "invalid_enum_value"
	case KindNotFound:
		return "not_found"
	case KindCompanyNotFound:
		return "company_not_found"
	case KindEmailNotAuthorized:
		return "email_not_authorized"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "internal_error"
	}
}

// Error is a client-facing failure. Message is safe to return to callers; cause is not.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Value   string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Code()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches sentinels by kind, so errors.Is(err, ErrForbidden) holds for any forbidden error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrInvalidEnumValue    = &Error{Kind: KindInvalidEnumValue}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrCompanyNotFound     = &Error{Kind: KindCompanyNotFound}
	ErrEmailNotAuthorized  = &Error{Kind: KindEmailNotAuthorized}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrInternal            = &Error{Kind: KindInternal}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }

func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

func InvalidEnum(field, raw string) *Error {
	return &Error{
		Kind:    KindInvalidEnumValue,
		Message: "Invalid value '" + raw + "' for field '" + field + "'",
		Field:   field,
		Value:   raw,
	}
}

// Internal hides cause behind a generic message.
func Internal(cause error) *Error {
	return Wrap(KindInternal, cause, "Internal server error")
}

// From returns the *Error in err's chain, or nil.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

func KindOf(err error) Kind {
	if ae := From(err); ae != nil {
		return ae.Kind
	}
	return KindUnknown
}
