package order

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Order Sync Errors
// ---------------------------------------------------------------------------

var (
	// Normalization errors
	ErrValidation = errors.New("order: invalid order document")

	// Source errors
	ErrSourceUnavailable     = errors.New("order: source temporarily unavailable")
	ErrSourceRequestFailed   = errors.New("order: source request failed")
	ErrSourceInvalidResponse = errors.New("order: invalid source response")

	// Sink errors
	ErrSinkFailed = errors.New("order: sink operation failed")
)

// ValidationError reports the required fields a strict normalization could
// not populate. It matches ErrValidation with errors.Is.
type ValidationError struct {
	OrderID     string
	OrderNumber string
	Fields      []string
}

func (e *ValidationError) Error() string {
	ref := e.OrderNumber
	if ref == "" {
		ref = e.OrderID
	}
	if ref == "" {
		ref = "unknown"
	}
	return fmt.Sprintf("order %s: missing required fields: %s", ref, strings.Join(e.Fields, ", "))
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransportError is a failed call to the source API or the sink.
// Err wraps one of the sentinel errors above plus the underlying cause.
type TransportError struct {
	Target     string // "linx" or "sink"
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Target, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Target, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewSinkError wraps a sink failure for op.
func NewSinkError(op string, err error) *TransportError {
	return &TransportError{Target: "sink", Op: op, Err: fmt.Errorf("%w: %v", ErrSinkFailed, err)}
}

// ConversionWarning describes a date or number that could not be converted
// and was replaced by its default. It is reported, never returned.
type ConversionWarning struct {
	Field string
	Value any
	Err   error
}

func (w ConversionWarning) String() string {
	return fmt.Sprintf("cannot convert %s=%v: %v", w.Field, w.Value, w.Err)
}
