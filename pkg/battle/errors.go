package battle

import (
	"errors"
	"fmt"
)

var (
	// ErrContractViolation is returned when a backend's structured output
	// does not satisfy the verdict schema, e.g. an unknown decision label.
	ErrContractViolation = errors.New("battle: contract violation")

	// ErrMergeConflict is returned when an Update would break a merge guard.
	ErrMergeConflict = errors.New("battle: merge conflict")

	// ErrInvalidState is returned when a State breaks one of its invariants.
	ErrInvalidState = errors.New("battle: invalid state")

	// ErrBadRoute is returned when a router names a node its source does not
	// declare as a target.
	ErrBadRoute = errors.New("battle: bad route")
)

// BackendError reports a failed backend call. It is fatal for the battle.
type BackendError struct {
	Node NodeName
	Role Role
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("battle: %s: %s backend: %v", e.Node, e.Role, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// MergeConflictError describes a rejected field update.
type MergeConflictError struct {
	Field  Field
	Policy MergePolicy
	Have   any
	Got    any
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("battle: merge conflict on %s (%s): have %v, got %v", e.Field, e.Policy, e.Have, e.Got)
}

func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}
