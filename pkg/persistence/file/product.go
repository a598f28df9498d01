package file

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

const productsDir = "products"

// ProductRepository handles product file operations. Soft-deleted products
// stay on disk but are filtered out of every lookup.
type ProductRepository struct {
	root string
}

// NewProductRepository creates a new product repository.
func NewProductRepository(root string) *ProductRepository {
	return &ProductRepository{root: root}
}

// GetByID retrieves a product by id. Soft-deleted products are absent.
func (pr *ProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	product, err := readEntity[models.Product](pr.root, productsDir, id)
	if err != nil {
		return nil, err
	}

	if product == nil || product.Deleted() {
		return nil, nil
	}

	return product, nil
}

// GetByTeams returns the live products owned by any of the given teams.
func (pr *ProductRepository) GetByTeams(_ context.Context, teamIDs []string) ([]*models.Product, error) {
	all, err := listEntities[models.Product](pr.root, productsDir)
	if err != nil {
		return nil, err
	}

	products := make([]*models.Product, 0)

	for _, product := range all {
		if product.Deleted() {
			continue
		}

		if slices.Contains(teamIDs, product.TeamID) {
			products = append(products, product)
		}
	}

	return products, nil
}

// Save stores a product, assigning an id when none is set.
func (pr *ProductRepository) Save(_ context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}

	product.UpdatedAt = now

	return writeEntity(pr.root, productsDir, product.ID, product)
}

// SoftDelete marks a product deleted without removing it.
func (pr *ProductRepository) SoftDelete(ctx context.Context, id string) error {
	product, err := pr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if product == nil {
		return persistence.ErrProductNotFound
	}

	now := time.Now().UTC()
	product.DeletedAt = &now

	return writeEntity(pr.root, productsDir, product.ID, product)
}
