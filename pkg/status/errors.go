// Package status defines the failure taxonomy shared by graph binding and
// workload construction. Every failure is fatal for the layer that raised it;
// nothing here is retried.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status classifies a binding failure.
type Status int

const (
	StatusSuccess                Status = 0
	StatusUnsupportedOperator    Status = 1
	StatusInvalidGraph           Status = 2
	StatusIncompatibleTensorInfo Status = 3
	StatusAllocationFailure      Status = 4
)

var statusMessages = map[Status]string{
	StatusSuccess:                "success",
	StatusUnsupportedOperator:    "unsupported operator",
	StatusInvalidGraph:           "invalid graph",
	StatusIncompatibleTensorInfo: "incompatible tensor info",
	StatusAllocationFailure:      "allocation failure",
}

// String returns the human-readable status message
func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("unknown status (%d)", int(s))
}

// Sentinels for errors.Is. They match any *Error with the same Status.
var (
	ErrUnsupportedOperator    = &Error{Status: StatusUnsupportedOperator}
	ErrInvalidGraph           = &Error{Status: StatusInvalidGraph}
	ErrIncompatibleTensorInfo = &Error{Status: StatusIncompatibleTensorInfo}
	ErrAllocationFailure      = &Error{Status: StatusAllocationFailure}
)

// Error is a binding failure localized to a layer. Expected and Actual hold
// the rendered tensor infos for IncompatibleTensorInfo failures.
type Error struct {
	Status   Status
	Layer    string
	Context  string
	Expected string
	Actual   string
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Status.String()
	if e.Context != "" {
		msg = e.Context + ": " + msg
	}
	if e.Layer != "" {
		msg = fmt.Sprintf("layer %q: %s", e.Layer, msg)
	}
	if e.Expected != "" || e.Actual != "" {
		msg = fmt.Sprintf("%s (expected %s, got %s)", msg, e.Expected, e.Actual)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target status
func (e *Error) Is(target error) bool {
	var statusErr *Error
	if errors.As(target, &statusErr) {
		return e.Status == statusErr.Status
	}
	return false
}

// NewError creates a new Error with the given status
func NewError(status Status, context string) *Error {
	return &Error{
		Status:  status,
		Context: context,
	}
}

// Errorf creates a new Error with a formatted context
func Errorf(status Status, format string, args ...interface{}) *Error {
	return NewError(status, fmt.Sprintf(format, args...))
}

// NewErrorWithCause creates a new Error with an underlying cause
func NewErrorWithCause(status Status, context string, cause error) *Error {
	return &Error{
		Status:  status,
		Context: context,
		Cause:   cause,
	}
}

// Mismatch creates an IncompatibleTensorInfo error carrying both infos.
func Mismatch(context string, expected, actual fmt.Stringer) *Error {
	return &Error{
		Status:   StatusIncompatibleTensorInfo,
		Context:  context,
		Expected: expected.String(),
		Actual:   actual.String(),
	}
}

// WithLayer attributes err to a layer. Errors that already name a layer are
// returned unchanged. A bare *Error is copied with the layer set; an *Error
// wrapped by other errors keeps its wrappers as the cause of a new Error
// with the same status. Foreign errors become InvalidGraph causes.
func WithLayer(err error, layer string) error {
	if err == nil {
		return nil
	}
	var statusErr *Error
	if !errors.As(err, &statusErr) {
		return &Error{Status: StatusInvalidGraph, Layer: layer, Cause: err}
	}
	if statusErr.Layer != "" {
		return err
	}
	if direct, ok := err.(*Error); ok {
		cp := *direct
		cp.Layer = layer
		return &cp
	}
	return &Error{Status: statusErr.Status, Layer: layer, Cause: err}
}

// StatusOf returns the Status carried by err, or StatusSuccess for nil.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var statusErr *Error
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return StatusInvalidGraph
}
