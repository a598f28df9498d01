package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/backloghq/backlogd/pkg/eventbus"
	"github.com/backloghq/backlogd/pkg/events"
	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

// Sprint opens sprints for products. Numbers are assigned server-side,
// strictly increasing per product, and never reused.
type Sprint struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewSprint creates a new sprint service.
func NewSprint(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Sprint {
	return &Sprint{
		persistence: p,
		publisher:   publisher,
		logger:      logger.With("module", "sprint_service"),
	}
}

// Open creates the next-numbered sprint for a product.
func (s *Sprint) Open(ctx context.Context, productID string, startsAt, endsAt time.Time) (*models.Sprint, error) {
	product, err := s.persistence.ProductRepository().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product == nil {
		return nil, ErrProductNotFound
	}

	if !startsAt.IsZero() && !endsAt.IsZero() && endsAt.Before(startsAt) {
		return nil, ErrInvalidSprintRange
	}

	maxNumber, err := s.persistence.SprintRepository().MaxNumber(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine next sprint number: %w", err)
	}

	sprint := &models.Sprint{
		ProductID: product.ID,
		Number:    maxNumber + 1,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
	}

	err = s.persistence.SprintRepository().Save(ctx, sprint)
	if err != nil {
		return nil, fmt.Errorf("failed to save sprint: %w", err)
	}

	if s.publisher != nil {
		err = s.publisher.Publish(ctx, product.ID, events.SprintOpened{
			BaseEvent: events.BaseEvent{Type: events.SprintOpenedEvent, Timestamp: time.Now().UTC()},
			SprintID:  sprint.ID,
			ProductID: product.ID,
			Number:    sprint.Number,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to publish sprint event", "sprint_id", sprint.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "sprint opened", "sprint_id", sprint.ID, "product_id", product.ID, "number", sprint.Number)

	return sprint, nil
}

// Fetch retrieves a sprint by id.
func (s *Sprint) Fetch(ctx context.Context, sprintID string) (*models.Sprint, error) {
	sprint, err := s.persistence.SprintRepository().GetByID(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	if sprint == nil {
		return nil, ErrSprintNotFound
	}

	return sprint, nil
}
