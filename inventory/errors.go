/*
errors.go - Centralized error types for the allocation engine

ERROR CATEGORIES:
  1. Validation errors - caller-supplied quantity/duration out of bounds
  2. Domain errors - operation invalid for a returnable/consumable resource
  3. Store errors - the persistence call failed

  Validation and domain errors are raised before any write. Store errors
  abort the operation in flight.

USAGE:
  if inventory.IsValidation(err) {
      // 400
  }
  var dErr *inventory.DomainError
  if errors.As(err, &dErr) {
      log.Printf("%s refused: %s", dErr.Op, dErr.Reason)
  }
*/
package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every caller-input failure.
	ErrValidation = errors.New("validation failed")

	// ErrDomain is the root of every operation refused by the resource's classification.
	ErrDomain = errors.New("operation not allowed")

	// ErrStore is the root of every persistence failure.
	ErrStore = errors.New("store operation failed")

	// ErrInsufficientQuantity is returned when an allocation exceeds what is available.
	ErrInsufficientQuantity = fmt.Errorf("%w: insufficient quantity", ErrValidation)

	ErrResourceNotFound   = errors.New("resource not found")
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrAssignmentNotFound = errors.New("task assignment not found")

	// ErrConcurrentModification is returned when a compare-and-set on the
	// resource version loses to another writer.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientQuantityError reports an allocation request larger than the
// resource's available quantity at call time.
type InsufficientQuantityError struct {
	ResourceID ResourceID
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity for %s: available %s, requested %s",
		e.ResourceID, e.Available, e.Requested)
}

func (e *InsufficientQuantityError) Unwrap() error { return ErrInsufficientQuantity }

type DomainError struct {
	Op         string
	ResourceID ResourceID
	Reason     string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.ResourceID, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// StoreError wraps a persistence failure with the step that issued it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// wrapStore leaves the engine's own errors untouched and tags everything
// else as a StoreError.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrDomain) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsDomain(err error) bool     { return errors.Is(err, ErrDomain) }
func IsStore(err error) bool      { return errors.Is(err, ErrStore) }

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrAllocationNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
