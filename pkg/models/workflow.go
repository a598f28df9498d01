// Package models defines the core domain models for product backlog management.
package models

import (
	"slices"
	"time"
)

// Direction classifies a transition as moving the item ahead in the
// workflow or back to an earlier state.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Role is an access-control category used to filter which states and
// transitions are visible or permitted. Roles are resolved by the dispatch
// layer; the core only matches them against transition rules.
type Role string

const (
	RoleScrumMaster  Role = "scrum_master"
	RoleProductOwner Role = "product_owner"
	RoleTeamMember   Role = "team_member"
)

// State is a single named step of a workflow. Ordinals start at 1 and give
// the display/progression order; the ordinal-1 state is where new items land.
type State struct {
	Name     string `json:"name"     validate:"required"`
	Ordinal  int    `json:"ordinal"  validate:"required,min=1"`
	Terminal bool   `json:"terminal"`
}

// Transition is a directed, role-gated edge between two states of the same
// workflow. An empty role set means no role may perform the transition.
type Transition struct {
	From      string    `json:"from"      validate:"required"`
	To        string    `json:"to"        validate:"required"`
	Direction Direction `json:"direction" validate:"required,oneof=forward backward"`
	Roles     []Role    `json:"roles"`
}

// Allows reports whether the transition may be performed by the given role.
func (t Transition) Allows(role Role) bool {
	return slices.Contains(t.Roles, role)
}

// WorkflowDefinition is a named, ordered set of states and the permitted
// transitions between them. Products reference definitions by name.
type WorkflowDefinition struct {
	Name        string       `json:"name"        validate:"required,min=3"`
	Description string       `json:"description"`
	States      []State      `json:"states"      validate:"required,min=1,dive"`
	Transitions []Transition `json:"transitions" validate:"dive"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// StateByName returns the state with the given name, if any.
func (w *WorkflowDefinition) StateByName(name string) (State, bool) {
	for _, s := range w.States {
		if s.Name == name {
			return s, true
		}
	}

	return State{}, false
}

// HasState reports whether name is a member of the workflow's state set.
func (w *WorkflowDefinition) HasState(name string) bool {
	_, ok := w.StateByName(name)

	return ok
}

// InitialState returns the state with the lowest ordinal. New backlog items
// and items entering a sprint are placed here.
func (w *WorkflowDefinition) InitialState() (State, bool) {
	if len(w.States) == 0 {
		return State{}, false
	}

	initial := w.States[0]
	for _, s := range w.States[1:] {
		if s.Ordinal < initial.Ordinal {
			initial = s
		}
	}

	return initial, true
}

// OrderedStates returns the states sorted by ordinal.
func (w *WorkflowDefinition) OrderedStates() []State {
	ordered := slices.Clone(w.States)
	slices.SortFunc(ordered, func(a, b State) int {
		return a.Ordinal - b.Ordinal
	})

	return ordered
}
