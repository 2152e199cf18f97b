/*
errors.go - Centralized error types for the planning engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every rejection the engine produces is one of five kinds, and every
  structured error unwraps to the matching sentinel so callers can use
  errors.Is without caring about the concrete type.

ERROR KINDS:
  validation          Malformed input (end before start, percent out of range)
  not_found           Resource, site or assignment id does not exist
  inactive_resource   Resource exists but is not schedulable
  overcommit          Combined peak would exceed MaxCombinedPercent
  invalid_transition  Illegal status change

USAGE:
  if errors.Is(err, planning.ErrOvercommit) {
      var oc *planning.OvercommitError
      errors.As(err, &oc)
      render(oc.Conflicts)
  }

SEE ALSO:
  - api/handlers.go: Maps Kind(err) to HTTP status codes
  - lifecycle.go: Produces InvalidTransitionError
*/
package planning

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input. Nothing is persisted.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced resource, site or assignment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInactiveResource is returned when a resource exists but may not
	// receive new assignments.
	ErrInactiveResource = errors.New("resource is inactive")

	// ErrOvercommit is returned when a candidate would push the combined
	// peak utilization above MaxCombinedPercent.
	ErrOvercommit = errors.New("resource overcommitted")

	// ErrInvalidTransition is returned for an illegal status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
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

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Entity string // "resource", "site" or "assignment"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InactiveResourceError is returned when scheduling an inactive resource.
type InactiveResourceError struct {
	ResourceID ResourceID
}

func (e *InactiveResourceError) Error() string {
	return fmt.Sprintf("resource %q is inactive and cannot be scheduled", e.ResourceID)
}

func (e *InactiveResourceError) Unwrap() error { return ErrInactiveResource }

// OvercommitError explains a rejected candidate with the assignments it
// collides with, so callers can render why.
type OvercommitError struct {
	ResourceID           ResourceID
	Window               Window
	CandidatePercent     int
	ProjectedPeakPercent int
	PeakDay              Day
	Conflicts            []Assignment
}

func (e *OvercommitError) Error() string {
	ids := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		ids[i] = string(c.ID)
	}
	return fmt.Sprintf("resource %q overcommitted: peak %d%% on %s exceeds %d%% (conflicts: %s)",
		e.ResourceID, e.ProjectedPeakPercent, e.PeakDay, MaxCombinedPercent, strings.Join(ids, ", "))
}

func (e *OvercommitError) Unwrap() error { return ErrOvercommit }

// InvalidTransitionError carries the rejected status pair.
type InvalidTransitionError struct {
	AssignmentID AssignmentID
	From         Status
	To           Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("assignment %q cannot move from %s to %s", e.AssignmentID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// ErrorKind is the wire name of an error category.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindInactiveResource  ErrorKind = "inactive_resource"
	KindOvercommit        ErrorKind = "overcommit"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindInternal          ErrorKind = "internal"
)

// Kind classifies err for transport layers.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInactiveResource):
		return KindInactiveResource
	case errors.Is(err, ErrOvercommit):
		return KindOvercommit
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	default:
		return KindInternal
	}
}

// IsClientError returns true if the error is due to caller input rather
// than a storage failure.
func IsClientError(err error) bool {
	return Kind(err) != KindInternal
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
