// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates no workflow definition carries the given name.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStateNotFound indicates a state name is not a member of a workflow.
	ErrStateNotFound = errors.New("state not found")

	// ErrProductNotFound indicates a product was not found (or is soft-deleted).
	ErrProductNotFound = errors.New("product not found")

	// ErrTeamNotFound indicates a team was not found by the given identifier.
	ErrTeamNotFound = errors.New("team not found")

	// ErrUserNotFound indicates no user carries the given username.
	ErrUserNotFound = errors.New("user not found")

	// ErrSprintNotFound indicates a sprint was not found by id or product+number.
	ErrSprintNotFound = errors.New("sprint not found")

	// ErrItemNotFound indicates a backlog item was not found by the given identifier.
	ErrItemNotFound = errors.New("backlog item not found")

	// ErrVersionConflict indicates a compare-and-swap update lost the race:
	// the stored item version no longer matches the one read.
	ErrVersionConflict = errors.New("item version conflict")
)

// ItemError wraps backlog-item errors with operation context.
type ItemError struct {
	Op     string // Operation being performed (e.g. "Update", "Delete")
	ItemID string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s operation failed for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

func (e *ItemError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewItemError creates a new backlog-item error with context.
func NewItemError(op, itemID string, err error) *ItemError {
	return &ItemError{Op: op, ItemID: itemID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing workflow definition.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsStateNotFound checks if an error indicates a missing workflow state.
func IsStateNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound)
}

// IsProductNotFound checks if an error indicates a missing product.
func IsProductNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

// IsUserNotFound checks if an error indicates a missing user.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsSprintNotFound checks if an error indicates a missing sprint.
func IsSprintNotFound(err error) bool {
	return errors.Is(err, ErrSprintNotFound)
}

// IsItemNotFound checks if an error indicates a missing backlog item.
func IsItemNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsVersionConflict checks if an error indicates a lost optimistic-concurrency race.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
