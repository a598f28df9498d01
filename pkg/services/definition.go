package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/backloghq/backlogd/pkg/eventbus"
	"github.com/backloghq/backlogd/pkg/events"
	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
	"github.com/backloghq/backlogd/pkg/workflow"
)

//go:embed schemas/workflow_definition.json
var definitionSchema string

// Definition administers workflow definitions. Every successful save or
// delete invalidates the local engine cache synchronously and then notifies
// the other instances through the event bus; a stale cache on a sibling is a
// window, a stale cache here would break read-your-writes.
type Definition struct {
	persistence persistence.Persistence
	engine      *workflow.Engine
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewDefinition creates a new workflow definition service.
func NewDefinition(
	p persistence.Persistence,
	engine *workflow.Engine,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Definition {
	return &Definition{
		persistence: p,
		engine:      engine,
		publisher:   publisher,
		logger:      logger.With("module", "definition_service"),
	}
}

// List returns every stored workflow definition.
func (d *Definition) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	return d.persistence.WorkflowDefinitionRepository().List(ctx)
}

// Fetch retrieves a definition by name.
func (d *Definition) Fetch(ctx context.Context, name string) (*models.WorkflowDefinition, error) {
	definition, err := d.persistence.WorkflowDefinitionRepository().GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if definition == nil {
		return nil, ErrWorkflowNotFound
	}

	return definition, nil
}

// Create stores a new definition under an unused name.
func (d *Definition) Create(ctx context.Context, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	err := d.validate(definition)
	if err != nil {
		return nil, err
	}

	existing, err := d.persistence.WorkflowDefinitionRepository().GetByName(ctx, definition.Name)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return nil, ErrDefinitionExists
	}

	now := time.Now().UTC()
	definition.CreatedAt = now
	definition.UpdatedAt = now

	return d.save(ctx, definition)
}

// Update replaces an existing definition.
func (d *Definition) Update(ctx context.Context, name string, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	definition.Name = name

	err := d.validate(definition)
	if err != nil {
		return nil, err
	}

	existing, err := d.persistence.WorkflowDefinitionRepository().GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrWorkflowNotFound
	}

	definition.CreatedAt = existing.CreatedAt
	definition.UpdatedAt = time.Now().UTC()

	return d.save(ctx, definition)
}

// Delete removes a definition by name.
func (d *Definition) Delete(ctx context.Context, name string) error {
	existing, err := d.persistence.WorkflowDefinitionRepository().GetByName(ctx, name)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrWorkflowNotFound
	}

	err = d.persistence.WorkflowDefinitionRepository().Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete workflow definition: %w", err)
	}

	d.engine.Invalidate(name)

	d.notify(ctx, name, events.WorkflowDefinitionDeleted{
		BaseEvent:    events.BaseEvent{Type: events.WorkflowDefinitionDeletedEvent, Timestamp: time.Now().UTC()},
		WorkflowName: name,
	})

	return nil
}

// VisibleStates returns the state names of the workflow relevant to a role,
// in ordinal order.
func (d *Definition) VisibleStates(ctx context.Context, name string, role models.Role) ([]string, error) {
	return d.engine.VisibleStates(ctx, name, role)
}

// NextStates returns the legal targets from a state, grouped forward then
// backward.
func (d *Definition) NextStates(ctx context.Context, name, state string) ([][]string, error) {
	return d.engine.NextStates(ctx, name, state)
}

func (d *Definition) save(ctx context.Context, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	err := d.persistence.WorkflowDefinitionRepository().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow definition: %w", err)
	}

	d.engine.Invalidate(definition.Name)

	d.notify(ctx, definition.Name, events.WorkflowDefinitionSaved{
		BaseEvent:    events.BaseEvent{Type: events.WorkflowDefinitionSavedEvent, Timestamp: time.Now().UTC()},
		WorkflowName: definition.Name,
	})

	d.logger.InfoContext(ctx, "workflow definition saved", "workflow", definition.Name)

	return definition, nil
}

func (d *Definition) notify(ctx context.Context, key string, event eventbus.Event) {
	if d.publisher == nil {
		return
	}

	err := d.publisher.Publish(ctx, key, event)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to publish definition event", "workflow", key, "error", err)
	}
}

// validate runs the structural JSON-schema check followed by the semantic
// rules the schema cannot express.
func (d *Definition) validate(definition *models.WorkflowDefinition) error {
	err := d.validateSchema(definition)
	if err != nil {
		return err
	}

	return validateSemantics(definition)
}

func (d *Definition) validateSchema(definition *models.WorkflowDefinition) error {
	document, err := json.Marshal(definition)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("failed to run schema validation: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return NewValidationError("validateSchema", "INVALID_DEFINITION",
			strings.Join(descriptions, "; "), ErrInvalidDefinition)
	}

	return nil
}

func validateSemantics(definition *models.WorkflowDefinition) error {
	names := make(map[string]bool, len(definition.States))
	ordinals := make(map[int]bool, len(definition.States))

	for _, state := range definition.States {
		if names[state.Name] {
			return NewValidationError("validateSemantics", "DUPLICATE_STATE",
				fmt.Sprintf("state %q declared twice", state.Name), ErrInvalidDefinition)
		}

		if ordinals[state.Ordinal] {
			return NewValidationError("validateSemantics", "DUPLICATE_ORDINAL",
				fmt.Sprintf("ordinal %d used twice", state.Ordinal), ErrInvalidDefinition)
		}

		names[state.Name] = true
		ordinals[state.Ordinal] = true
	}

	// Ordinals must run 1..n without gaps, so initial-state resolution and
	// ordered listings stay unambiguous.
	for i := 1; i <= len(definition.States); i++ {
		if !ordinals[i] {
			return NewValidationError("validateSemantics", "ORDINAL_GAP",
				fmt.Sprintf("ordinals must be contiguous from 1, missing %d", i), ErrInvalidDefinition)
		}
	}

	for _, transition := range definition.Transitions {
		if !names[transition.From] || !names[transition.To] {
			return NewValidationError("validateSemantics", "UNDECLARED_ENDPOINT",
				fmt.Sprintf("transition %s -> %s references an undeclared state", transition.From, transition.To),
				ErrInvalidDefinition)
		}

		from, _ := definition.StateByName(transition.From)
		to, _ := definition.StateByName(transition.To)

		switch transition.Direction {
		case models.DirectionForward:
			if to.Ordinal <= from.Ordinal {
				return NewValidationError("validateSemantics", "DIRECTION_MISMATCH",
					fmt.Sprintf("forward transition %s -> %s does not advance", transition.From, transition.To),
					ErrInvalidDefinition)
			}
		case models.DirectionBackward:
			if to.Ordinal >= from.Ordinal {
				return NewValidationError("validateSemantics", "DIRECTION_MISMATCH",
					fmt.Sprintf("backward transition %s -> %s does not regress", transition.From, transition.To),
					ErrInvalidDefinition)
			}
		}
	}

	return nil
}
