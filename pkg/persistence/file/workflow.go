package file

import (
	"context"
	"sort"
	"time"

	"github.com/backloghq/backlogd/pkg/models"
)

const workflowsDir = "workflows"

// WorkflowDefinitionRepository handles workflow-definition file operations.
type WorkflowDefinitionRepository struct {
	root string
}

// NewWorkflowDefinitionRepository creates a new workflow definition repository.
func NewWorkflowDefinitionRepository(root string) *WorkflowDefinitionRepository {
	return &WorkflowDefinitionRepository{root: root}
}

// List returns all workflow definitions ordered by name.
func (wr *WorkflowDefinitionRepository) List(_ context.Context) ([]*models.WorkflowDefinition, error) {
	definitions, err := listEntities[models.WorkflowDefinition](wr.root, workflowsDir)
	if err != nil {
		return nil, err
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Name < definitions[j].Name
	})

	return definitions, nil
}

// GetByName retrieves a workflow definition by name.
func (wr *WorkflowDefinitionRepository) GetByName(_ context.Context, name string) (*models.WorkflowDefinition, error) {
	return readEntity[models.WorkflowDefinition](wr.root, workflowsDir, name)
}

// Save stores a workflow definition, keyed by its name.
func (wr *WorkflowDefinitionRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	now := time.Now().UTC()
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	return writeEntity(wr.root, workflowsDir, definition.Name, definition)
}

// Delete removes a workflow definition by name.
func (wr *WorkflowDefinitionRepository) Delete(_ context.Context, name string) error {
	return removeEntity(wr.root, workflowsDir, name)
}
