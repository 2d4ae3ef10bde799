// Package shared contains the common error taxonomy used across the service.
// Adapter layers map kinds to transport codes; nothing here is domain- or
// transport-specific.
package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for conditions callers may want to handle.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates that input validation failed.
	ErrValidation = errors.New("validation failed")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrDependencyFailure indicates that an external dependency failed.
	ErrDependencyFailure = errors.New("dependency failure")

	// ErrInternal indicates an internal error.
	ErrInternal = errors.New("internal error")
)

// Kind classifies an error for handling at adapter boundaries.
type Kind int

const (
	KindUnknown Kind = iota
	KindCanceled
	KindTimeout
	KindNotFound
	KindValidation
	KindDependencyFailure
	KindInternal
)

// String returns the name of the Kind.
func (k Kind) String() string {
	switch k {
	case KindCanceled:
		return "Canceled"
	case KindTimeout:
		return "Timeout"
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "Validation"
	case KindDependencyFailure:
		return "DependencyFailure"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// KindOf classifies err by traversing its chain. When several kinds are
// present the highest-priority one wins: canceled, timeout, not found,
// validation, dependency failure, internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case IsTimeout(err):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrDependencyFailure):
		return KindDependencyFailure
	case errors.Is(err, ErrInternal):
		return KindInternal
	default:
		return KindUnknown
	}
}

// IsTimeout reports whether err indicates a timeout, covering
// context.DeadlineExceeded, net.Error timeouts and ErrTimeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err indicates invalid input.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// Wrap adds context to an error, formatting as "context: err".
// A nil err or empty context passes through unchanged.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf adds formatted context to an error.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Validationf returns a new validation error with a formatted message, marked
// so IsValidation recognizes it.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns a new not-found error with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
