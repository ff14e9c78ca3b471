package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCheckoutInProgress is returned when the same user already has a checkout running
var ErrCheckoutInProgress = errors.New("checkout already in progress")

// ValidationError lists the fields that failed validation, keyed by field name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// InsufficientStockError is returned when a size has fewer units than requested
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	SizeName    string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): %d available, %d requested",
		e.ProductName, e.SizeName, e.Available, e.Requested)
}

// TransientError wraps an I/O failure. The checkout may be retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a failed checkout may be submitted again unchanged
func IsRetryable(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient) || errors.Is(err, ErrCheckoutInProgress)
}
