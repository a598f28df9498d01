package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

// BacklogItemRepository handles backlog-item database operations. Updates
// are compare-and-swap statements on the version column, so two racing
// writers cannot both succeed.
type BacklogItemRepository struct {
	db *sql.DB
}

// NewBacklogItemRepository creates a new backlog item repository.
func NewBacklogItemRepository(db *sql.DB) *BacklogItemRepository {
	return &BacklogItemRepository{db: db}
}

const itemColumns = `
	id
  , product_id
  , sprint_id
  , title
  , description
  , effort
  , priority
  , status
  , version
  , created_at
  , updated_at
`

// GetByID retrieves a backlog item by id, (nil, nil) when absent.
func (r *BacklogItemRepository) GetByID(ctx context.Context, id string) (*models.BacklogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM backlog_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan backlog item: %w", err)
	}

	return item, nil
}

// ListProductBacklog returns the items of a product that sit in no sprint.
func (r *BacklogItemRepository) ListProductBacklog(ctx context.Context, productID string) ([]*models.BacklogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM backlog_items
		WHERE product_id = $1 AND sprint_id IS NULL
		ORDER BY priority DESC, created_at`

	return r.list(ctx, query, productID)
}

// ListBySprint returns the items assigned to a sprint.
func (r *BacklogItemRepository) ListBySprint(ctx context.Context, sprintID string) ([]*models.BacklogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM backlog_items
		WHERE sprint_id = $1
		ORDER BY priority DESC, created_at`

	return r.list(ctx, query, sprintID)
}

// Save inserts a new backlog item at version 1.
func (r *BacklogItemRepository) Save(ctx context.Context, item *models.BacklogItem) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}

	item.UpdatedAt = now

	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	if item.Version == 0 {
		item.Version = 1
	}

	query := `
		INSERT INTO backlog_items (id, product_id, sprint_id, title, description, effort, priority, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.ProductID,
		item.SprintID,
		item.Title,
		item.Description,
		item.Effort,
		item.Priority,
		item.Status.String(),
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save backlog item %s: %w", item.ID, err)
	}

	return nil
}

// Update rewrites an item if and only if the stored version still matches
// item.Version, bumping the version on success.
func (r *BacklogItemRepository) Update(ctx context.Context, item *models.BacklogItem) error {
	item.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE backlog_items SET
			sprint_id = $3,
			title = $4,
			description = $5,
			effort = $6,
			priority = $7,
			status = $8,
			version = version + 1,
			updated_at = $9
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Version,
		item.SprintID,
		item.Title,
		item.Description,
		item.Effort,
		item.Priority,
		item.Status.String(),
		item.UpdatedAt,
	)
	if err != nil {
		return persistence.NewItemError("Update", item.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		// Distinguish a missing item from a lost version race.
		stored, err := r.GetByID(ctx, item.ID)
		if err != nil {
			return err
		}

		if stored == nil {
			return persistence.NewItemError("Update", item.ID, persistence.ErrItemNotFound)
		}

		return persistence.NewItemError("Update", item.ID, persistence.ErrVersionConflict)
	}

	item.Version++

	return nil
}

// Delete removes a backlog item by id.
func (r *BacklogItemRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM backlog_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete backlog item %s: %w", id, err)
	}

	return nil
}

func (r *BacklogItemRepository) list(ctx context.Context, query string, arg any) ([]*models.BacklogItem, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query backlog items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.BacklogItem, 0)

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backlog item: %w", err)
		}

		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating backlog items: %w", err)
	}

	return items, nil
}

func scanItem(row rowScanner) (*models.BacklogItem, error) {
	var (
		item      models.BacklogItem
		rawStatus string
	)

	err := row.Scan(
		&item.ID,
		&item.ProductID,
		&item.SprintID,
		&item.Title,
		&item.Description,
		&item.Effort,
		&item.Priority,
		&rawStatus,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	item.Status = status

	return &item, nil
}
