package core

import (
	"errors"
	"fmt"
)

// Validation errors. Each aborts the requested operation without mutating
// the tree.
var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrTooManyParents  = errors.New("already has two parents")
	ErrSameSexParent   = errors.New("cannot add second parent of same sex")
	ErrRootNode        = errors.New("the root person cannot be deleted")
	ErrUnknownRelation = errors.New("unknown relation")
	ErrUnknownField    = errors.New("unknown field")
	ErrReadOnlyField   = errors.New("field cannot be edited")
	ErrNoSelection     = errors.New("no person selected")
)

// NodeError attaches the offending node id to a validation error.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

func nodeErr(id string, err error) error {
	return &NodeError{NodeID: id, Err: err}
}
