// Package persistence provides the data storage abstraction layer for
// products, sprints, backlog items and workflow definitions.
package persistence

import (
	"context"

	"github.com/backloghq/backlogd/pkg/models"
)

// Persistence aggregates the entity repositories of one storage backend.
type Persistence interface {
	WorkflowDefinitionRepository() WorkflowDefinitionRepository
	ProductRepository() ProductRepository
	TeamRepository() TeamRepository
	UserRepository() UserRepository
	SprintRepository() SprintRepository
	BacklogItemRepository() BacklogItemRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowDefinitionRepository stores the per-product workflow definitions.
// Lookups return (nil, nil) when no definition carries the given name.
type WorkflowDefinitionRepository interface {
	List(ctx context.Context) ([]*models.WorkflowDefinition, error)
	GetByName(ctx context.Context, name string) (*models.WorkflowDefinition, error)
	Save(ctx context.Context, definition *models.WorkflowDefinition) error
	Delete(ctx context.Context, name string) error
}

// ProductRepository stores products. Soft-deleted products are absent from
// every lookup.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByTeams(ctx context.Context, teamIDs []string) ([]*models.Product, error)
	Save(ctx context.Context, product *models.Product) error
	SoftDelete(ctx context.Context, id string) error
}

// TeamRepository answers the role-scoped team queries used to resolve the
// products visible to a user.
type TeamRepository interface {
	GetByScrumMaster(ctx context.Context, username string) ([]*models.Team, error)
	GetByProductOwner(ctx context.Context, username string) ([]*models.Team, error)
	GetByMember(ctx context.Context, username string) ([]*models.Team, error)
	Save(ctx context.Context, team *models.Team) error
}

// UserRepository resolves usernames. GetByUsername returns (nil, nil) for an
// unknown username.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// SprintRepository stores sprints. GetByProductAndNumber scopes the lookup
// to one product, so cross-product sprint references cannot happen.
type SprintRepository interface {
	GetByID(ctx context.Context, id string) (*models.Sprint, error)
	GetByProductAndNumber(ctx context.Context, productID string, number int) (*models.Sprint, error)
	MaxNumber(ctx context.Context, productID string) (int, error)
	Save(ctx context.Context, sprint *models.Sprint) error
}

// BacklogItemRepository stores backlog items. Update is a compare-and-swap
// against the item's version: implementations must reject the write with
// ErrVersionConflict when the stored version no longer matches, and bump the
// version on success.
type BacklogItemRepository interface {
	GetByID(ctx context.Context, id string) (*models.BacklogItem, error)
	ListProductBacklog(ctx context.Context, productID string) ([]*models.BacklogItem, error)
	ListBySprint(ctx context.Context, sprintID string) ([]*models.BacklogItem, error)
	Save(ctx context.Context, item *models.BacklogItem) error
	Update(ctx context.Context, item *models.BacklogItem) error
	Delete(ctx context.Context, id string) error
}
