package orders

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrPersistence     = errors.New("persistence error")

	// ErrDuplicateOrderNumber is reported by a Repository when the unique
	// order number index rejects an insert. It is always also ErrPersistence.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
)

// Error carries an error kind, a message that is safe to return to API
// callers and the underlying cause, which is only ever logged.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidInput(msg string) error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

func NotFound(msg string, cause error) error {
	return &Error{Kind: ErrNotFound, Message: msg, Err: cause}
}

func Persistence(op string, cause error) error {
	return &Error{Kind: ErrPersistence, Message: "Internal server error", Err: fmt.Errorf("%s: %w", op, cause)}
}

// PublicMessage returns the caller-safe message of err. Errors that are not
// an *Error get a generic message so storage details never leak.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

// classify keeps typed errors as they are, turns untyped not-found causes
// into NotFound with msg and everything else into a persistence failure.
func classify(err error, op, notFoundMsg string) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == ErrNotFound && notFoundMsg != "" {
			return NotFound(notFoundMsg, e.Err)
		}
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return NotFound(notFoundMsg, err)
	}
	return Persistence(op, err)
}
