package portal

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind tags a portal error with the failure category the booking
// worker dispatches on.
type ErrorKind string

const (
	// KindLoginFailed means the user/password combination was rejected.
	KindLoginFailed ErrorKind = "loginFailed"
	// KindPasswordRequired means the stored cookie expired and no
	// password is available for a fresh login.
	KindPasswordRequired ErrorKind = "passwordRequired"
	// KindUnparseableResponse means the portal returned something the
	// client cannot interpret (CloudFlare interstitial, non-JSON body).
	KindUnparseableResponse ErrorKind = "unparseableResponse"
	// KindTransient means a network error or an HTTP error status.
	KindTransient ErrorKind = "transient"
	// KindInvalidBox means the user has no access to the box URL.
	KindInvalidBox ErrorKind = "invalidBox"
	// KindClassNotFound means no class exists at the requested time.
	KindClassNotFound ErrorKind = "classNotFound"
	// KindClassFull means every seat of the class is taken.
	KindClassFull ErrorKind = "classFull"
	// KindWindowNotOpen means the booking window has not opened yet. The
	// error may carry the instant the portal announced it will open.
	KindWindowNotOpen ErrorKind = "windowNotOpen"
	// KindBookingFailed means the portal rejected the claim.
	KindBookingFailed ErrorKind = "bookingFailed"
	// KindBookingPenalty means a cancellation penalty is blocking the claim.
	KindBookingPenalty ErrorKind = "bookingPenalty"
	// KindBookingLocked means the portal is momentarily refusing claims;
	// the caller may retry after a short backoff.
	KindBookingLocked ErrorKind = "bookingLocked"
)

// Error is a portal failure carrying its category tag.
type Error struct {
	Kind    ErrorKind
	Message string
	// AvailableAt is set only for KindWindowNotOpen, when the portal
	// announced when the window opens.
	AvailableAt time.Time

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds a portal error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds a portal error of the given kind around a cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the error kind. Unrecognized errors are classified as
// transient so callers fall into the bounded retry path.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindTransient
}

// AvailableAt extracts the window-open instant of a KindWindowNotOpen
// error, or the zero time.
func AvailableAt(err error) time.Time {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.AvailableAt
	}
	return time.Time{}
}

// MessageOf extracts the portal-provided message of an error.
func MessageOf(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Message
	}
	return err.Error()
}
