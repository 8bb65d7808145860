// Package errs defines the structured error taxonomy surfaced at the
// handle façade: every failure a caller can observe carries one of four
// kinds and a machine-readable sub-kind, so bindings can branch on Kind()
// without parsing message text.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the top-level error category.
type Kind int

const (
	// KindModelLoad covers failures while loading a model from disk.
	KindModelLoad Kind = iota
	// KindInference covers failures during a forward pass.
	KindInference
	// KindValidation covers bad caller input.
	KindValidation
	// KindInvalidArgument covers kernel/layer construction argument errors.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindModelLoad:
		return "ModelLoad"
	case KindInference:
		return "Inference"
	case KindValidation:
		return "Validation"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Sub-kinds, grouped by the Kind they belong to.
const (
	FileNotFound  = "FileNotFound"
	InvalidFormat = "InvalidFormat"
	EmptyModel    = "EmptyModel"

	NoModelLoaded = "NoModelLoaded"
	InternalError = "InternalError"

	ShapeMismatch = "ShapeMismatch"
	NanInput      = "NanInput"
)

// Error is the single type used for every taxonomy-classified failure. The
// cause is wrapped with github.com/pkg/errors so that formatting with "%+v"
// prints a stack trace while Error() stays a short line. The FFI's
// last_error() reports the Error() line only.
type Error struct {
	Kind    Kind
	SubKind string
	cause   error
}

// New constructs a taxonomy error with no wrapped cause.
func New(kind Kind, subKind, message string) *Error {
	return &Error{Kind: kind, SubKind: subKind, cause: errors.New(message)}
}

// Wrap constructs a taxonomy error around an existing cause, stack-annotated
// at the call site.
func Wrap(kind Kind, subKind string, cause error) *Error {
	return &Error{Kind: kind, SubKind: subKind, cause: errors.WithStack(cause)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.SubKind, e.cause)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Format supports "%+v" to print the cause's stack trace, and falls back to
// Error() for everything else (%s, %v, %q).
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s\n%+v", e.Error(), e.cause)
		return
	}
	fmt.Fprint(s, e.Error())
}

// ModelLoad is a convenience constructor for the ModelLoad kind.
func ModelLoad(subKind string, cause error) *Error { return Wrap(KindModelLoad, subKind, cause) }

// Inference is a convenience constructor for the Inference kind.
func Inference(subKind string, cause error) *Error { return Wrap(KindInference, subKind, cause) }

// Validation is a convenience constructor for the Validation kind.
func Validation(subKind string, cause error) *Error { return Wrap(KindValidation, subKind, cause) }

// InvalidArgument is a convenience constructor for the InvalidArgument kind.
func InvalidArgument(cause error) *Error { return Wrap(KindInvalidArgument, "", cause) }
