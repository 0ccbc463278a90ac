package stagedi

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MissingDependencyError is raised by the Planner when a Key has no
// candidate binding and is not served by a parent Locator.
type MissingDependencyError struct {
	Key       Key
	Dependent *Key
	Path      []Key
}

func (e *MissingDependencyError) Error() string {
	if e.Dependent != nil {
		return fmt.Sprintf("stagedi: missing dependency %s (required by %s)", e.Key, *e.Dependent)
	}
	return fmt.Sprintf("stagedi: missing dependency %s", e.Key)
}

// CircularDependencyError is raised by the Planner when traversal revisits
// a Key that is still being resolved.
type CircularDependencyError struct {
	Cycle []Key
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("stagedi: circular dependency: %s", keysString(e.Cycle))
}

// ConflictingBindingsError is raised by the Planner when more than one
// binding is equally specific (maximal specificity) and valid for a Key
// under the current activation and path constraints.
type ConflictingBindingsError struct {
	Key        Key
	Candidates []Binding
	Path       []Key
}

func (e *ConflictingBindingsError) Error() string {
	tags := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		tags[i] = c.tags.String()
	}
	return fmt.Sprintf("stagedi: conflicting bindings for %s: %s", e.Key, strings.Join(tags, ", "))
}

// AxisConflictError is raised by the Planner when a non-collection Key has
// candidate bindings but every one of them is ruled out by an axis
// constraint: either its tags disagree with the base Activation, or they
// fail the path's required and forbidden axis-choice constraints.
type AxisConflictError struct {
	Key        Key
	Dependent  *Key
	Constraint string
	Path       []Key
}

func (e *AxisConflictError) Error() string {
	if e.Dependent != nil {
		return fmt.Sprintf("stagedi: axis conflict resolving %s (required by %s): %s", e.Key, *e.Dependent, e.Constraint)
	}
	return fmt.Sprintf("stagedi: axis conflict resolving %s: %s", e.Key, e.Constraint)
}

// FunctoidConstructionError is raised by Functoid constructors when a
// callable and its declared dependency list are inconsistent.
type FunctoidConstructionError struct {
	Reason string
}

func (e *FunctoidConstructionError) Error() string {
	return fmt.Sprintf("stagedi: cannot build functoid: %s", e.Reason)
}

// InstanceNotFoundError is raised by Locator.Get when a Key is absent.
type InstanceNotFoundError struct {
	Key Key
}

func (e *InstanceNotFoundError) Error() string {
	return fmt.Sprintf("stagedi: no instance for %s", e.Key)
}

// AggregateCleanupError collects the errors encountered while Locator.Close
// drained its lifecycle-managed resources. Release is attempted for every
// resource regardless of earlier failures.
type AggregateCleanupError struct {
	Errors []error
}

func (e *AggregateCleanupError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("stagedi: %d error(s) during close: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// ProducerFailure wraps a user Functoid's error with the Key that was
// being constructed when it occurred.
type ProducerFailure struct {
	Key   Key
	Cause error
}

func (e *ProducerFailure) Error() string {
	return fmt.Sprintf("stagedi: constructing %s: %s", e.Key, e.Cause)
}

func (e *ProducerFailure) Unwrap() error { return e.Cause }

// wrapProducerFailure annotates cause with the Key under construction,
// preserving the original stack via pkg/errors.
func wrapProducerFailure(key Key, cause error) error {
	return &ProducerFailure{Key: key, Cause: errors.WithStack(cause)}
}
