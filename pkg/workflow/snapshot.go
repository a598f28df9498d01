package workflow

import (
	"slices"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

type targetKey struct {
	from      string
	direction models.Direction
}

type edgeKey struct {
	from string
	to   string
}

// Snapshot is an immutable adjacency index over one workflow definition.
// Once built it is never written again, so it is safe to share across
// goroutines without locking.
type Snapshot struct {
	definition *models.WorkflowDefinition
	targets    map[targetKey][]models.State
	edges      map[edgeKey]models.Transition
}

func newSnapshot(definition *models.WorkflowDefinition) *Snapshot {
	snapshot := &Snapshot{
		definition: definition,
		targets:    make(map[targetKey][]models.State),
		edges:      make(map[edgeKey]models.Transition),
	}

	for _, transition := range definition.Transitions {
		target, ok := definition.StateByName(transition.To)
		if !ok {
			// A transition pointing at an undeclared state is dropped from
			// the index rather than poisoning every lookup. Definition
			// validation rejects these before they are ever saved.
			continue
		}

		key := targetKey{from: transition.From, direction: transition.Direction}
		snapshot.targets[key] = append(snapshot.targets[key], target)
		snapshot.edges[edgeKey{from: transition.From, to: transition.To}] = transition
	}

	for key := range snapshot.targets {
		slices.SortFunc(snapshot.targets[key], func(a, b models.State) int {
			return a.Ordinal - b.Ordinal
		})
	}

	return snapshot
}

// Definition returns the definition this snapshot was built from.
func (s *Snapshot) Definition() *models.WorkflowDefinition {
	return s.definition
}

// InitialState returns the state with the lowest ordinal.
func (s *Snapshot) InitialState() (models.State, bool) {
	return s.definition.InitialState()
}

// HasState reports whether the definition declares a state with this name.
func (s *Snapshot) HasState(name string) bool {
	return s.definition.HasState(name)
}

// IsTerminal reports whether the named state is declared terminal. Unknown
// states are not terminal.
func (s *Snapshot) IsTerminal(name string) bool {
	state, ok := s.definition.StateByName(name)

	return ok && state.Terminal
}

// NextStates returns the legal target names from currentState, grouped by
// direction: index 0 forward, index 1 backward, each sorted by ordinal.
func (s *Snapshot) NextStates(currentState string) ([][]string, error) {
	if !s.definition.HasState(currentState) {
		return nil, persistence.ErrStateNotFound
	}

	groups := make([][]string, 2)

	for i, direction := range []models.Direction{models.DirectionForward, models.DirectionBackward} {
		targets := s.targets[targetKey{from: currentState, direction: direction}]

		groups[i] = make([]string, 0, len(targets))
		for _, target := range targets {
			groups[i] = append(groups[i], target.Name)
		}
	}

	return groups, nil
}

// CanTransition reports whether an edge from -> to exists and permits role.
func (s *Snapshot) CanTransition(fromState, toState string, role models.Role) bool {
	transition, ok := s.edges[edgeKey{from: fromState, to: toState}]

	return ok && transition.Allows(role)
}

// HasEdge reports whether any transition connects fromState to toState,
// regardless of role.
func (s *Snapshot) HasEdge(fromState, toState string) bool {
	_, ok := s.edges[edgeKey{from: fromState, to: toState}]

	return ok
}

// VisibleStates returns, in ordinal order, the names of the states the role
// participates in: every endpoint of a transition whose role set contains it.
func (s *Snapshot) VisibleStates(role models.Role) []string {
	visible := make(map[string]bool)

	for _, transition := range s.definition.Transitions {
		if !transition.Allows(role) {
			continue
		}

		visible[transition.From] = true
		visible[transition.To] = true
	}

	names := make([]string, 0, len(visible))

	for _, state := range s.definition.OrderedStates() {
		if visible[state.Name] {
			names = append(names, state.Name)
		}
	}

	return names
}
