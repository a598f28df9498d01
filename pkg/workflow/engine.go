// Package workflow implements the per-product state machine: it answers
// which states a role can see and which transitions are legal from a given
// state, without mutating anything.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

// Engine computes state visibility and transition legality for named
// workflow definitions. Definitions are read-mostly, so each one is indexed
// once on first access and the index is cached until Invalidate is called
// for that name.
type Engine struct {
	definitions persistence.WorkflowDefinitionRepository
	logger      *slog.Logger

	mu    sync.RWMutex
	cache map[string]*Snapshot
}

// NewEngine creates a new workflow engine on top of the definition repository.
func NewEngine(definitions persistence.WorkflowDefinitionRepository, logger *slog.Logger) *Engine {
	return &Engine{
		definitions: definitions,
		logger:      logger.With("module", "workflow_engine"),
		cache:       make(map[string]*Snapshot),
	}
}

// Snapshot returns the indexed view of one workflow definition. All checks
// belonging to a single operation must run against the same snapshot, so a
// concurrent definition edit cannot change the rules mid-validation.
func (e *Engine) Snapshot(ctx context.Context, name string) (*Snapshot, error) {
	e.mu.RLock()
	snapshot, ok := e.cache[name]
	e.mu.RUnlock()

	if ok {
		return snapshot, nil
	}

	definition, err := e.definitions.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", name, err)
	}

	if definition == nil {
		return nil, persistence.NewItemError("Snapshot", name, persistence.ErrWorkflowNotFound)
	}

	snapshot = newSnapshot(definition)

	e.mu.Lock()
	// Another request may have built the index meanwhile; keep whichever is
	// there so every in-flight caller sees one consistent snapshot.
	if cached, ok := e.cache[name]; ok {
		snapshot = cached
	} else {
		e.cache[name] = snapshot
	}
	e.mu.Unlock()

	return snapshot, nil
}

// Invalidate drops the cached index for a workflow name. Callers editing a
// definition must invalidate before reporting the edit committed.
func (e *Engine) Invalidate(name string) {
	e.mu.Lock()
	delete(e.cache, name)
	e.mu.Unlock()

	e.logger.Debug("workflow index invalidated", "workflow", name)
}

// VisibleStates returns, in ordinal order, the names of the states relevant
// to a role: the endpoints of every transition the role may perform. A role
// with no transitions sees an empty sequence, not an error.
func (e *Engine) VisibleStates(ctx context.Context, name string, role models.Role) ([]string, error) {
	snapshot, err := e.Snapshot(ctx, name)
	if err != nil {
		return nil, err
	}

	return snapshot.VisibleStates(role), nil
}

// NextStates returns the legal targets from the given state, grouped by
// direction: group 0 holds the forward targets, group 1 the backward ones,
// each ordered by ordinal. An empty group is valid.
func (e *Engine) NextStates(ctx context.Context, name, currentState string) ([][]string, error) {
	snapshot, err := e.Snapshot(ctx, name)
	if err != nil {
		return nil, err
	}

	return snapshot.NextStates(currentState)
}

// CanTransition reports whether a transition edge from -> to exists and the
// role is permitted to perform it.
func (e *Engine) CanTransition(ctx context.Context, name, fromState, toState string, role models.Role) (bool, error) {
	snapshot, err := e.Snapshot(ctx, name)
	if err != nil {
		return false, err
	}

	if !snapshot.definition.HasState(fromState) || !snapshot.definition.HasState(toState) {
		return false, persistence.ErrStateNotFound
	}

	return snapshot.CanTransition(fromState, toState, role), nil
}
