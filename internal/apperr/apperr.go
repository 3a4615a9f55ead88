// Package apperr is the domain error taxonomy shared by the scheduling core.
//
// Every caller-visible failure carries a machine-readable Code and a Kind. The
// Kind decides how a transport reports it; cross-gym access is always a
// KindScope error so callers cannot probe other tenants.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindScope
	KindForbidden
	KindPrecondition
	KindCapacity
	KindDuplicate
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindScope:
		return "scope"
	case KindForbidden:
		return "forbidden"
	case KindPrecondition:
		return "precondition"
	case KindCapacity:
		return "capacity"
	case KindDuplicate:
		return "duplicate"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status code handlers respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindScope:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindPrecondition, KindCapacity, KindDuplicate:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type Code string

const (
	CodeInternal Code = "INTERNAL"

	CodeGymNotFound     Code = "GYM_NOT_FOUND"
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeClassNotFound   Code = "CLASS_NOT_FOUND"
	CodeSpecialNotFound Code = "SPECIAL_HOURS_NOT_FOUND"

	CodeMemberNotInGym  Code = "MEMBER_NOT_IN_GYM"
	CodeTrainerNotInGym Code = "TRAINER_NOT_IN_GYM"

	CodeSessionNotScheduled  Code = "SESSION_NOT_SCHEDULED"
	CodeSessionStarted       Code = "SESSION_ALREADY_STARTED"
	CodeNotRegistered        Code = "NOT_REGISTERED"
	CodeClassInactive        Code = "CLASS_INACTIVE"
	CodeNoSessionInWindow    Code = "NO_SESSION_IN_WINDOW"
	CodeSessionOutsideWindow Code = "SESSION_OUTSIDE_WINDOW"

	CodeSessionFull Code = "SESSION_FULL"

	CodeAlreadyRegistered  Code = "ALREADY_REGISTERED"
	CodeAlreadyCheckedIn   Code = "ALREADY_CHECKED_IN"
	CodeSpecialHoursExists Code = "SPECIAL_HOURS_EXISTS"

	CodeHoursInvalid        Code = "HOURS_INVALID"
	CodeSessionInvalid      Code = "SESSION_INVALID"
	CodeClassInvalid        Code = "CLASS_INVALID"
	CodeCheckInTokenInvalid Code = "CHECKIN_TOKEN_INVALID"
)

// Error is a domain error with structured metadata.
type Error struct {
	Code     Code
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(kind Kind, code Code, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

func Wrap(kind Kind, code Code, message string, cause error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Cause: cause}
}

func (e *Error) With(key, value string) *Error {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	return &Error{Code: e.Code, Kind: e.Kind, Message: e.Message, Metadata: md, Cause: e.Cause}
}

func Scope(code Code, message string) *Error        { return New(KindScope, code, message) }
func Forbidden(code Code, message string) *Error    { return New(KindForbidden, code, message) }
func Precondition(code Code, message string) *Error { return New(KindPrecondition, code, message) }
func Capacity(code Code, message string) *Error     { return New(KindCapacity, code, message) }
func Duplicate(code Code, message string) *Error    { return New(KindDuplicate, code, message) }
func Validation(code Code, message string) *Error   { return New(KindValidation, code, message) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
