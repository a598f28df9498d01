package file

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

const itemsDir = "items"

// BacklogItemRepository handles backlog-item file operations. A process-wide
// mutex serializes the read-compare-write of Update so the version check is
// atomic within one process, matching what the SQL backend gets from its
// compare-and-swap statement.
type BacklogItemRepository struct {
	root string
	mu   sync.Mutex
}

// NewBacklogItemRepository creates a new backlog item repository.
func NewBacklogItemRepository(root string) *BacklogItemRepository {
	return &BacklogItemRepository{root: root}
}

// GetByID retrieves a backlog item by id.
func (br *BacklogItemRepository) GetByID(_ context.Context, id string) (*models.BacklogItem, error) {
	return readEntity[models.BacklogItem](br.root, itemsDir, id)
}

// ListProductBacklog returns the items of a product that sit in no sprint,
// ordered by priority then creation time.
func (br *BacklogItemRepository) ListProductBacklog(_ context.Context, productID string) ([]*models.BacklogItem, error) {
	all, err := listEntities[models.BacklogItem](br.root, itemsDir)
	if err != nil {
		return nil, err
	}

	items := make([]*models.BacklogItem, 0)

	for _, item := range all {
		if item.ProductID == productID && !item.InSprint() {
			items = append(items, item)
		}
	}

	sortItems(items)

	return items, nil
}

// ListBySprint returns the items assigned to a sprint.
func (br *BacklogItemRepository) ListBySprint(_ context.Context, sprintID string) ([]*models.BacklogItem, error) {
	all, err := listEntities[models.BacklogItem](br.root, itemsDir)
	if err != nil {
		return nil, err
	}

	items := make([]*models.BacklogItem, 0)

	for _, item := range all {
		if item.InSprint() && *item.SprintID == sprintID {
			items = append(items, item)
		}
	}

	sortItems(items)

	return items, nil
}

// Save stores a new backlog item at version 1, assigning an id when none
// is set.
func (br *BacklogItemRepository) Save(_ context.Context, item *models.BacklogItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}

	item.UpdatedAt = now

	if item.Version == 0 {
		item.Version = 1
	}

	return writeEntity(br.root, itemsDir, item.ID, item)
}

// Update rewrites an existing item if and only if the stored version still
// matches item.Version. On success the stored version is incremented.
func (br *BacklogItemRepository) Update(ctx context.Context, item *models.BacklogItem) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	stored, err := br.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}

	if stored == nil {
		return persistence.NewItemError("Update", item.ID, persistence.ErrItemNotFound)
	}

	if stored.Version != item.Version {
		return persistence.NewItemError("Update", item.ID, persistence.ErrVersionConflict)
	}

	item.Version++
	item.UpdatedAt = time.Now().UTC()

	return writeEntity(br.root, itemsDir, item.ID, item)
}

// Delete removes a backlog item by id.
func (br *BacklogItemRepository) Delete(_ context.Context, id string) error {
	return removeEntity(br.root, itemsDir, id)
}

func sortItems(items []*models.BacklogItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}

		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
