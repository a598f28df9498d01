// Package services implements the business operations on products, sprints,
// backlog items and workflow definitions.
package services

import (
	"errors"
	"fmt"

	"github.com/backloghq/backlogd/pkg/persistence"
)

// Not-found errors. The legacy backlog endpoints report these as client
// errors (400); the admin surface reports 404.
var (
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrProductNotFound  = persistence.ErrProductNotFound
	ErrSprintNotFound   = persistence.ErrSprintNotFound
	ErrItemNotFound     = persistence.ErrItemNotFound
	ErrUserNotFound     = persistence.ErrUserNotFound
	ErrStateNotFound    = persistence.ErrStateNotFound

	// ErrWorkflowNotConfigured marks a product without an assigned workflow:
	// its items cannot change state until one is configured.
	ErrWorkflowNotConfigured = errors.New("product has no workflow configured")
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidDefinition  = errors.New("invalid workflow definition")
	ErrIllegalTransition  = errors.New("transition not permitted by workflow")
	ErrInvalidSprintRange = errors.New("sprint end must not precede its start")
)

// Unprocessable-state errors (422).
var (
	// ErrSprintNotActive covers every way a sprint fails to resolve as the
	// active one: missing for the requested number, not yet started, or
	// already over.
	ErrSprintNotActive = errors.New("sprint is not active")
)

// Conflict errors (409).
var (
	// ErrConflictingUpdate is a lost optimistic-concurrency race. Clients
	// should re-read the item and retry.
	ErrConflictingUpdate = errors.New("item was modified concurrently")

	// ErrDefinitionExists rejects creating a definition under a taken name.
	ErrDefinitionExists = errors.New("workflow definition already exists")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound checks if an error means a referenced entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSprintNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrStateNotFound) ||
		errors.Is(err, ErrWorkflowNotConfigured)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidDefinition) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrInvalidSprintRange)
}

// IsNotActive checks if an error means the referenced sprint is not active.
func IsNotActive(err error) bool {
	return errors.Is(err, ErrSprintNotActive)
}

// IsIllegalTransition checks if an error is a rejected state change.
func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}

// IsConflict checks if an error should map to HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflictingUpdate) ||
		errors.Is(err, ErrDefinitionExists)
}
