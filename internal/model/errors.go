package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the UI layer.
type ErrorKind string

const (
	// KindConfiguration means the user must fix setup (client credentials,
	// sender address). Never retried automatically.
	KindConfiguration ErrorKind = "configuration"

	// KindAuthorization covers invalid callbacks, denied consent and
	// rejected code exchanges. A fresh connect attempt is required.
	KindAuthorization ErrorKind = "authorization"

	// KindQuotaExceeded means the daily cap has been reached.
	KindQuotaExceeded ErrorKind = "quota_exceeded"

	// KindProvider wraps network or API failures from the mail service.
	KindProvider ErrorKind = "provider"

	// KindTimeout means no browser callback arrived in time.
	KindTimeout ErrorKind = "timeout"

	// KindNotConnected means no token set has been stored yet.
	KindNotConnected ErrorKind = "not_connected"

	// KindInvalidRequest means the caller supplied unusable input.
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Error is a classified failure carrying a message suitable for direct
// display to the user.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err (or any error in its chain) is an *Error of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
