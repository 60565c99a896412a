package domain

import (
	"errors"
	"fmt"
)

// ErrUnresolvedReference is returned when a string node names nothing in the scope.
var ErrUnresolvedReference = errors.New("unresolved reference")

// ErrInvalidNode is returned when a node definition has an unsupported shape.
var ErrInvalidNode = errors.New("invalid node")

// ErrSnapshotNotFound is returned when a run snapshot cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ValidationError describes a node that could not be executed as written.
// The engine turns it into an error output instead of aborting the run.
type ValidationError struct {
	Kind Kind
	Ref  string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %q: %v", e.Kind, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s node: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
