package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the stable category of a lifecycle error.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindSchedule           ErrorKind = "schedule"
	KindThrottled          ErrorKind = "throttled"
	KindNotFound           ErrorKind = "not_found"
	KindInvalidState       ErrorKind = "invalid_state"
	KindForbidden          ErrorKind = "forbidden"
	KindUniquenessConflict ErrorKind = "uniqueness_conflict"
	KindInternal           ErrorKind = "internal"
)

// ScheduleReason explains why a publication instant was rejected.
type ScheduleReason string

const (
	ReasonMissingOrInvalidInstant ScheduleReason = "missing_or_invalid_instant"
	ReasonNotInFuture             ScheduleReason = "not_in_future"
	ReasonTooFarInFuture          ScheduleReason = "too_far_in_future"
	ReasonInvalidTimezone         ScheduleReason = "invalid_timezone"
)

// ErrStalePost is wrapped by the error returned when a guarded write finds
// that the post changed since it was read.
var ErrStalePost = errors.New("post was modified concurrently")

// Error is returned for every failure surfaced by the lifecycle.
type Error struct {
	Kind    ErrorKind
	Message string

	// Reason is set for KindSchedule.
	Reason ScheduleReason

	// RetryAfter is set for KindThrottled.
	RetryAfter time.Duration

	Err error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
	}
	switch {
	case e.Err != nil && e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
// for any other non-nil error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewScheduleError(reason ScheduleReason, message string) *Error {
	return &Error{Kind: KindSchedule, Reason: reason, Message: message}
}

func NewThrottledError(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindThrottled, Message: message, RetryAfter: retryAfter}
}

func NewNotFoundError(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("post not found: %s", id)}
}

func NewInvalidStateError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(actor string, op Operation) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf("actor %q may not %s posts", actor, op)}
}

func NewUniquenessConflict(slug string, err error) *Error {
	return &Error{Kind: KindUniquenessConflict, Message: fmt.Sprintf("slug already taken: %s", slug), Err: err}
}

func NewInternalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}
