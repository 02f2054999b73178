package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindInvalidRange         ErrorKind = "invalid_range"
	KindUnknownCategory      ErrorKind = "unknown_category"
	KindNotFound             ErrorKind = "not_found"
	KindAvailabilityConflict ErrorKind = "availability_conflict"
	KindInvalidTransition    ErrorKind = "invalid_transition"
	KindTerminalState        ErrorKind = "terminal_state"
	KindDiscountInvalid      ErrorKind = "discount_invalid"
	KindForbidden            ErrorKind = "forbidden"
	KindUnavailable          ErrorKind = "unavailable"
)

// Error is the structured error returned by the booking core. Callers switch
// on Kind and render Message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Expected reports whether the error is a business outcome the caller can act
// on rather than a fault.
func (e *Error) Expected() bool {
	return e.Kind != KindUnavailable
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind sentinels for errors.Is.
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrInvalidRange         = &Error{Kind: KindInvalidRange}
	ErrUnknownCategory      = &Error{Kind: KindUnknownCategory}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrAvailabilityConflict = &Error{Kind: KindAvailabilityConflict}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition}
	ErrTerminalState        = &Error{Kind: KindTerminalState}
	ErrDiscountInvalid      = &Error{Kind: KindDiscountInvalid}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrUnavailable          = &Error{Kind: KindUnavailable}
)

func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewInvalidRangeError(msg string) error {
	return &Error{Kind: KindInvalidRange, Message: msg}
}

func NewUnknownCategoryError(categoryID int32) error {
	return &Error{Kind: KindUnknownCategory, Message: fmt.Sprintf("vehicle category %d does not exist", categoryID)}
}

func NewNotFoundError(entity string, id any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

func NewAvailabilityConflictError(categoryID int32) error {
	return &Error{Kind: KindAvailabilityConflict, Message: fmt.Sprintf("no vehicles left in category %d for the requested period, search again", categoryID)}
}

func NewInvalidTransitionError(from, to BookingStatus) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("cannot move booking from %s to %s", from, to)}
}

func NewTerminalStateError(status BookingStatus) error {
	return &Error{Kind: KindTerminalState, Message: fmt.Sprintf("booking is %s and can no longer change", status)}
}

func NewDiscountInvalidError(reason string) error {
	return &Error{Kind: KindDiscountInvalid, Message: reason}
}

func NewForbiddenError(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NewUnavailableError(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transient store failure. Business rule
// failures are never retried.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
