// Package file provides a file-based persistence implementation used for
// development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/backloghq/backlogd/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on top of a
// directory of JSON files, one file per entity.
type Persistence struct {
	root         string
	workflowRepo *WorkflowDefinitionRepository
	productRepo  *ProductRepository
	teamRepo     *TeamRepository
	userRepo     *UserRepository
	sprintRepo   *SprintRepository
	itemRepo     *BacklogItemRepository
}

// NewPersistence creates a new instance of Persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowDefinitionRepository(cleanRoot),
		productRepo:  NewProductRepository(cleanRoot),
		teamRepo:     NewTeamRepository(cleanRoot),
		userRepo:     NewUserRepository(cleanRoot),
		sprintRepo:   NewSprintRepository(cleanRoot),
		itemRepo:     NewBacklogItemRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowDefinitionRepository() persistence.WorkflowDefinitionRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ProductRepository() persistence.ProductRepository {
	return fp.productRepo
}

func (fp *Persistence) TeamRepository() persistence.TeamRepository {
	return fp.teamRepo
}

func (fp *Persistence) UserRepository() persistence.UserRepository {
	return fp.userRepo
}

func (fp *Persistence) SprintRepository() persistence.SprintRepository {
	return fp.sprintRepo
}

func (fp *Persistence) BacklogItemRepository() persistence.BacklogItemRepository {
	return fp.itemRepo
}
