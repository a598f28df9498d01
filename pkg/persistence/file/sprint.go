package file

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/backloghq/backlogd/pkg/models"
)

const sprintsDir = "sprints"

// SprintRepository handles sprint file operations.
type SprintRepository struct {
	root string
}

// NewSprintRepository creates a new sprint repository.
func NewSprintRepository(root string) *SprintRepository {
	return &SprintRepository{root: root}
}

// GetByID retrieves a sprint by id.
func (sr *SprintRepository) GetByID(_ context.Context, id string) (*models.Sprint, error) {
	return readEntity[models.Sprint](sr.root, sprintsDir, id)
}

// GetByProductAndNumber retrieves the sprint carrying the given number
// within one product. Returns (nil, nil) when no such sprint exists.
func (sr *SprintRepository) GetByProductAndNumber(_ context.Context, productID string, number int) (*models.Sprint, error) {
	all, err := listEntities[models.Sprint](sr.root, sprintsDir)
	if err != nil {
		return nil, err
	}

	for _, sprint := range all {
		if sprint.ProductID == productID && sprint.Number == number {
			return sprint, nil
		}
	}

	return nil, nil
}

// MaxNumber returns the highest sprint number assigned for a product, zero
// when the product has no sprints yet.
func (sr *SprintRepository) MaxNumber(_ context.Context, productID string) (int, error) {
	all, err := listEntities[models.Sprint](sr.root, sprintsDir)
	if err != nil {
		return 0, err
	}

	maxNumber := 0

	for _, sprint := range all {
		if sprint.ProductID == productID && sprint.Number > maxNumber {
			maxNumber = sprint.Number
		}
	}

	return maxNumber, nil
}

// Save stores a sprint, assigning an id when none is set.
func (sr *SprintRepository) Save(_ context.Context, sprint *models.Sprint) error {
	if sprint.ID == "" {
		sprint.ID = uuid.New().String()
	}

	if sprint.CreatedAt.IsZero() {
		sprint.CreatedAt = time.Now().UTC()
	}

	return writeEntity(sr.root, sprintsDir, sprint.ID, sprint)
}
