package frametie

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine and its adapters.
//
// Errors are classified by wrapping: adapters wrap one of these
// sentinels (usually via Transientf or Fatalf) and callers test with
// errors.Is or Classify. The copy loop reacts to the class, not the
// concrete error.
var (
	// ErrInvalidArgument reports a malformed argument: nil endpoint,
	// bad dimensions, mismatched buffer sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedMode reports a mode the component cannot serve,
	// such as an unknown pixel depth.
	ErrUnsupportedMode = errors.New("unsupported mode")

	// ErrNotStarted reports an operation that needs a running or
	// at least started component, issued against an idle one.
	ErrNotStarted = errors.New("not started")

	// ErrTransient reports a failure that a reconfigure may clear:
	// an empty read, a dropped device, a file at EOF.
	ErrTransient = errors.New("transient failure")

	// ErrFatal reports a failure no retry will clear. The engine
	// stops the tie and parks the error for Err.
	ErrFatal = errors.New("fatal failure")
)

// Transientf builds an error wrapping ErrTransient.
func Transientf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}

// Fatalf builds an error wrapping ErrFatal.
func Fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFatal, fmt.Sprintf(format, args...))
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsFatal reports whether err is classified as fatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// ErrorClass buckets an error for retry decisions and metrics.
type ErrorClass int

const (
	// ClassNone means no error, or an error outside the taxonomy.
	ClassNone ErrorClass = iota

	// ClassInvalidArgument covers ErrInvalidArgument.
	ClassInvalidArgument

	// ClassUnsupportedMode covers ErrUnsupportedMode.
	ClassUnsupportedMode

	// ClassNotStarted covers ErrNotStarted.
	ClassNotStarted

	// ClassTransient covers ErrTransient.
	ClassTransient

	// ClassFatal covers ErrFatal.
	ClassFatal
)

// String returns a short name for the class.
func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassInvalidArgument:
		return "invalid_argument"
	case ClassUnsupportedMode:
		return "unsupported_mode"
	case ClassNotStarted:
		return "not_started"
	case ClassTransient:
		return "transient"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps err onto its ErrorClass.
//
// A nil error and errors outside the taxonomy both map to ClassNone.
// Fatal wins over transient if an error somehow wraps both.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrFatal):
		return ClassFatal
	case errors.Is(err, ErrTransient):
		return ClassTransient
	case errors.Is(err, ErrNotStarted):
		return ClassNotStarted
	case errors.Is(err, ErrUnsupportedMode):
		return ClassUnsupportedMode
	case errors.Is(err, ErrInvalidArgument):
		return ClassInvalidArgument
	default:
		return ClassNone
	}
}
