package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

// ProductRepository handles product database operations. Every query filters
// out soft-deleted rows.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	id
  , name
  , version
  , description
  , workflow_name
  , team_id
  , created_at
  , updated_at
  , deleted_at
`

// GetByID retrieves a live product by id, (nil, nil) when absent or soft-deleted.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	return product, nil
}

// GetByTeams returns the live products owned by any of the given teams.
func (r *ProductRepository) GetByTeams(ctx context.Context, teamIDs []string) ([]*models.Product, error) {
	if len(teamIDs) == 0 {
		return []*models.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE team_id = ANY($1) AND deleted_at IS NULL ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query products by teams: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		products = append(products, product)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Save upserts a product.
func (r *ProductRepository) Save(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}

	product.UpdatedAt = now

	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (id, name, version, description, workflow_name, team_id, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			description = EXCLUDED.description,
			workflow_name = EXCLUDED.workflow_name,
			team_id = EXCLUDED.team_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Version,
		product.Description,
		nullString(product.WorkflowName),
		nullString(product.TeamID),
		product.CreatedAt,
		product.UpdatedAt,
		product.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", product.ID, err)
	}

	return nil
}

// SoftDelete marks a product deleted without removing the row.
func (r *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE products SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete product %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrProductNotFound
	}

	return nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		product      models.Product
		workflowName sql.NullString
		teamID       sql.NullString
	)

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Version,
		&product.Description,
		&workflowName,
		&teamID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	product.WorkflowName = workflowName.String
	product.TeamID = teamID.String

	return &product, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
