package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure. Retry policy belongs to the caller:
// the core never retries on its own.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindInvalidState
	KindDuplicate
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindInvalidState:
		return "invalid_state"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches errors by Kind, so errors.Is(err, apperrors.InvalidState("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }
func InvalidState(msg string) *Error  { return &Error{Kind: KindInvalidState, Message: msg} }
func Duplicate(msg string) *Error     { return &Error{Kind: KindDuplicate, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// StatusCode maps an error to the HTTP status the transport layer returns.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindInvalidState, KindDuplicate:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
