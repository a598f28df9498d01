// Package postgresql provides the PostgreSQL persistence implementation for
// products, sprints, backlog items and workflow definitions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/backloghq/backlogd/pkg/persistence"
	"github.com/backloghq/backlogd/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowDefinitionRepository
	productRepo  *ProductRepository
	teamRepo     *TeamRepository
	userRepo     *UserRepository
	sprintRepo   *SprintRepository
	itemRepo     *BacklogItemRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs pending
// schema migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowDefinitionRepository(database, logger),
		productRepo:  NewProductRepository(database),
		teamRepo:     NewTeamRepository(database),
		userRepo:     NewUserRepository(database),
		sprintRepo:   NewSprintRepository(database),
		itemRepo:     NewBacklogItemRepository(database),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowDefinitionRepository() persistence.WorkflowDefinitionRepository {
	return p.workflowRepo
}

func (p *Persistence) ProductRepository() persistence.ProductRepository {
	return p.productRepo
}

func (p *Persistence) TeamRepository() persistence.TeamRepository {
	return p.teamRepo
}

func (p *Persistence) UserRepository() persistence.UserRepository {
	return p.userRepo
}

func (p *Persistence) SprintRepository() persistence.SprintRepository {
	return p.sprintRepo
}

func (p *Persistence) BacklogItemRepository() persistence.BacklogItemRepository {
	return p.itemRepo
}
