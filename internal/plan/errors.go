package plan

import (
	"errors"
	"fmt"
)

// Precondition failures, checked before any traversal. No script is
// produced when either fires.
var (
	ErrEmptyMoveSet = errors.New("plan: move set is empty")
	ErrEmptyLog     = errors.New("plan: commit log is empty")
)

// ErrAnchorNotFound matches any AnchorNotFoundError via errors.Is, for
// callers that don't care which hash was missing.
var ErrAnchorNotFound = errors.New("plan: anchor commit not found in log")

// AnchorNotFoundError reports that an anchor was requested but its commit
// was never visited during the scheduling pass.
type AnchorNotFoundError struct {
	Hash string
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("plan: anchor commit %s not found in log", e.Hash)
}

// Is makes errors.Is(err, ErrAnchorNotFound) match regardless of hash.
func (e *AnchorNotFoundError) Is(target error) bool {
	return target == ErrAnchorNotFound
}
