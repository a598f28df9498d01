package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backloghq/backlogd/pkg/models"
)

// SprintRepository handles sprint database operations.
type SprintRepository struct {
	db *sql.DB
}

// NewSprintRepository creates a new sprint repository.
func NewSprintRepository(db *sql.DB) *SprintRepository {
	return &SprintRepository{db: db}
}

const sprintColumns = `
	id
  , product_id
  , number
  , starts_at
  , ends_at
  , created_at
`

// GetByID retrieves a sprint by id, (nil, nil) when absent.
func (r *SprintRepository) GetByID(ctx context.Context, id string) (*models.Sprint, error) {
	query := `SELECT ` + sprintColumns + ` FROM sprints WHERE id = $1`

	sprint, err := scanSprint(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan sprint: %w", err)
	}

	return sprint, nil
}

// GetByProductAndNumber retrieves a sprint by its product-scoped number.
func (r *SprintRepository) GetByProductAndNumber(ctx context.Context, productID string, number int) (*models.Sprint, error) {
	query := `SELECT ` + sprintColumns + ` FROM sprints WHERE product_id = $1 AND number = $2`

	sprint, err := scanSprint(r.db.QueryRowContext(ctx, query, productID, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan sprint: %w", err)
	}

	return sprint, nil
}

// MaxNumber returns the highest sprint number assigned for a product.
func (r *SprintRepository) MaxNumber(ctx context.Context, productID string) (int, error) {
	var maxNumber int

	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(number), 0) FROM sprints WHERE product_id = $1", productID).
		Scan(&maxNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to query max sprint number: %w", err)
	}

	return maxNumber, nil
}

// Save inserts a sprint. Sprint numbers are immutable, so there is no upsert.
func (r *SprintRepository) Save(ctx context.Context, sprint *models.Sprint) error {
	if sprint.CreatedAt.IsZero() {
		sprint.CreatedAt = time.Now().UTC()
	}

	if sprint.ID == "" {
		sprint.ID = uuid.New().String()
	}

	query := `
		INSERT INTO sprints (id, product_id, number, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		sprint.ID, sprint.ProductID, sprint.Number,
		nullTime(sprint.StartsAt), nullTime(sprint.EndsAt), sprint.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save sprint %s: %w", sprint.ID, err)
	}

	return nil
}

func scanSprint(row rowScanner) (*models.Sprint, error) {
	var (
		sprint   models.Sprint
		startsAt sql.NullTime
		endsAt   sql.NullTime
	)

	err := row.Scan(&sprint.ID, &sprint.ProductID, &sprint.Number, &startsAt, &endsAt, &sprint.CreatedAt)
	if err != nil {
		return nil, err
	}

	sprint.StartsAt = startsAt.Time
	sprint.EndsAt = endsAt.Time

	return &sprint, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
