package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/backloghq/backlogd/pkg/models"
)

// WorkflowDefinitionRepository handles workflow-definition database operations.
type WorkflowDefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowDefinitionRepository creates a new workflow definition repository.
func NewWorkflowDefinitionRepository(db *sql.DB, logger *slog.Logger) *WorkflowDefinitionRepository {
	return &WorkflowDefinitionRepository{db: db, logger: logger}
}

// List returns all workflow definitions ordered by name.
func (r *WorkflowDefinitionRepository) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT
			name
		  , description
		  , states
		  , transitions
		  , created_at
		  , updated_at
		FROM workflow_definitions
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow definitions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	definitions := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		definition, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow definition: %w", err)
		}

		definitions = append(definitions, definition)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow definitions: %w", err)
	}

	return definitions, nil
}

// GetByName retrieves a workflow definition by name, (nil, nil) when absent.
func (r *WorkflowDefinitionRepository) GetByName(ctx context.Context, name string) (*models.WorkflowDefinition, error) {
	query := `
		SELECT
			name
		  , description
		  , states
		  , transitions
		  , created_at
		  , updated_at
		FROM workflow_definitions
		WHERE name = $1
	`

	definition, err := scanDefinition(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow definition: %w", err)
	}

	return definition, nil
}

// Save upserts a workflow definition keyed by name.
func (r *WorkflowDefinitionRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	now := time.Now().UTC()
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	statesJSON, err := json.Marshal(definition.States)
	if err != nil {
		return fmt.Errorf("failed to marshal states: %w", err)
	}

	transitionsJSON, err := json.Marshal(definition.Transitions)
	if err != nil {
		return fmt.Errorf("failed to marshal transitions: %w", err)
	}

	query := `
		INSERT INTO workflow_definitions (name, description, states, transitions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			states = EXCLUDED.states,
			transitions = EXCLUDED.transitions,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		definition.Name,
		definition.Description,
		statesJSON,
		transitionsJSON,
		definition.CreatedAt,
		definition.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow definition %s: %w", definition.Name, err)
	}

	return nil
}

// Delete removes a workflow definition by name.
func (r *WorkflowDefinitionRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflow_definitions WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete workflow definition %s: %w", name, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*models.WorkflowDefinition, error) {
	var (
		definition      models.WorkflowDefinition
		statesJSON      []byte
		transitionsJSON []byte
	)

	err := row.Scan(
		&definition.Name,
		&definition.Description,
		&statesJSON,
		&transitionsJSON,
		&definition.CreatedAt,
		&definition.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(statesJSON, &definition.States)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal states: %w", err)
	}

	err = json.Unmarshal(transitionsJSON, &definition.Transitions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transitions: %w", err)
	}

	return &definition, nil
}
