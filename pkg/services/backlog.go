package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/backloghq/backlogd/pkg/eventbus"
	"github.com/backloghq/backlogd/pkg/events"
	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/otelhelper"
	"github.com/backloghq/backlogd/pkg/persistence"
	"github.com/backloghq/backlogd/pkg/workflow"
)

// Backlog implements the backlog item lifecycle: creation in the product
// backlog, assignment into sprints, state changes along the product's
// workflow, and removal. Every item mutation is an optimistic
// compare-and-swap on the item version.
type Backlog struct {
	persistence persistence.Persistence
	engine      *workflow.Engine
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewBacklog creates a new backlog service.
func NewBacklog(
	p persistence.Persistence,
	engine *workflow.Engine,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Backlog {
	return &Backlog{
		persistence: p,
		engine:      engine,
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger.With("module", "backlog_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (b *Backlog) HealthCheck(ctx context.Context) (string, bool) {
	if b.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := b.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// AddToProductBacklog creates a backlog item in the product backlog. The
// item starts in the workflow's initial state and belongs to no sprint.
func (b *Backlog) AddToProductBacklog(ctx context.Context, productID string, draft *models.BacklogItem) (*models.BacklogItem, error) {
	ctx, span := otelhelper.StartSpan(ctx, b.tracer, "backlog.add_to_product_backlog",
		attribute.String(otelhelper.ProductIDKey, productID))
	defer span.End()

	product, snapshot, err := b.resolveProductWorkflow(ctx, productID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	initial, ok := snapshot.InitialState()
	if !ok {
		return nil, ErrStateNotFound
	}

	draft.ProductID = product.ID
	draft.SprintID = nil
	draft.Status = models.StatusOf(initial)

	err = b.persistence.BacklogItemRepository().Save(ctx, draft)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save backlog item: %w", err)
	}

	b.publish(ctx, product.ID, events.BacklogItemCreated{
		BaseEvent: b.baseEvent(events.BacklogItemCreatedEvent),
		ItemID:    draft.ID,
		ProductID: product.ID,
		Title:     draft.Title,
	})

	b.logger.InfoContext(ctx, "backlog item created", "item_id", draft.ID, "product_id", product.ID)

	return draft, nil
}

// ItemDraft carries field edits made alongside an assignment. Nil fields
// leave the stored value untouched.
type ItemDraft struct {
	Title       *string
	Description *string
	Effort      *int
	Priority    *int
}

func (d *ItemDraft) applyTo(item *models.BacklogItem) {
	if d == nil {
		return
	}

	if d.Title != nil {
		item.Title = *d.Title
	}

	if d.Description != nil {
		item.Description = *d.Description
	}

	if d.Effort != nil {
		item.Effort = *d.Effort
	}

	if d.Priority != nil {
		item.Priority = *d.Priority
	}
}

// AssignToSprint moves an item of the product into the sprint identified by
// its product-scoped number. The sprint must be open, field edits carried in
// the draft are applied, and the item restarts at the workflow's initial
// state regardless of where it stood before.
func (b *Backlog) AssignToSprint(ctx context.Context, productID, itemID string, sprintNumber int, draft *ItemDraft) (*models.BacklogItem, error) {
	ctx, span := otelhelper.StartSpan(ctx, b.tracer, "backlog.assign_to_sprint",
		attribute.String(otelhelper.ProductIDKey, productID),
		attribute.String(otelhelper.ItemIDKey, itemID),
		attribute.Int(otelhelper.SprintNumberKey, sprintNumber))
	defer span.End()

	product, snapshot, err := b.resolveProductWorkflow(ctx, productID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	sprint, err := b.resolveOpenSprint(ctx, product.ID, sprintNumber)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	item, err := b.resolveItem(ctx, itemID, product.ID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	initial, ok := snapshot.InitialState()
	if !ok {
		return nil, ErrStateNotFound
	}

	draft.applyTo(item)
	item.SprintID = &sprint.ID
	item.Status = models.StatusOf(initial)

	err = b.updateItem(ctx, item)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	b.publish(ctx, product.ID, events.BacklogItemAssigned{
		BaseEvent: b.baseEvent(events.BacklogItemAssignedEvent),
		ItemID:    item.ID,
		ProductID: product.ID,
		SprintID:  sprint.ID,
	})

	b.logger.InfoContext(ctx, "backlog item assigned to sprint",
		"item_id", item.ID, "sprint_id", sprint.ID, "sprint_number", sprint.Number)

	return item, nil
}

// ChangeState moves an item to the requested state. The requested state must
// belong to the product's workflow and be connected to the current state by
// a transition edge. Requesting the current state again is a no-op success,
// so retries of a delivered request stay idempotent.
func (b *Backlog) ChangeState(ctx context.Context, itemID, requested string) (*models.BacklogItem, error) {
	ctx, span := otelhelper.StartSpan(ctx, b.tracer, "backlog.change_state",
		attribute.String(otelhelper.ItemIDKey, itemID),
		attribute.String(otelhelper.StateKey, requested))
	defer span.End()

	item, err := b.resolveItem(ctx, itemID, "")
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	_, snapshot, err := b.resolveProductWorkflow(ctx, item.ProductID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !snapshot.HasState(requested) {
		return nil, NewValidationError("ChangeState", "ILLEGAL_TRANSITION",
			fmt.Sprintf("state %q is not part of the workflow", requested), ErrIllegalTransition)
	}

	current := item.Status.Label
	if requested == current {
		return item, nil
	}

	if !snapshot.HasEdge(current, requested) {
		return nil, NewValidationError("ChangeState", "ILLEGAL_TRANSITION",
			fmt.Sprintf("no transition from %q to %q", current, requested), ErrIllegalTransition)
	}

	target, _ := snapshot.Definition().StateByName(requested)
	item.Status = models.StatusOf(target)

	err = b.updateItem(ctx, item)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	b.publish(ctx, item.ProductID, events.BacklogItemStateChanged{
		BaseEvent: b.baseEvent(events.BacklogItemStateChangedEvent),
		ItemID:    item.ID,
		ProductID: item.ProductID,
		FromState: current,
		ToState:   requested,
	})

	b.logger.InfoContext(ctx, "backlog item state changed",
		"item_id", item.ID, "from", current, "to", requested)

	return item, nil
}

// NextStateFor resolves a symbolic direction to a concrete target state for
// an item: the first legal target from the item's current state in that
// direction. No target means the move is illegal.
func (b *Backlog) NextStateFor(ctx context.Context, itemID string, direction models.Direction) (string, error) {
	item, err := b.resolveItem(ctx, itemID, "")
	if err != nil {
		return "", err
	}

	_, snapshot, err := b.resolveProductWorkflow(ctx, item.ProductID)
	if err != nil {
		return "", err
	}

	groups, err := snapshot.NextStates(item.Status.Label)
	if err != nil {
		return "", err
	}

	group := groups[0]
	if direction == models.DirectionBackward {
		group = groups[1]
	}

	if len(group) == 0 {
		return "", NewValidationError("NextStateFor", "ILLEGAL_TRANSITION",
			fmt.Sprintf("no %s transition from %q", direction, item.Status.Label), ErrIllegalTransition)
	}

	return group[0], nil
}

// RemoveItem deletes a backlog item permanently.
func (b *Backlog) RemoveItem(ctx context.Context, itemID string) error {
	ctx, span := otelhelper.StartSpan(ctx, b.tracer, "backlog.remove_item",
		attribute.String(otelhelper.ItemIDKey, itemID))
	defer span.End()

	item, err := b.resolveItem(ctx, itemID, "")
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	err = b.persistence.BacklogItemRepository().Delete(ctx, item.ID)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to delete backlog item: %w", err)
	}

	b.publish(ctx, item.ProductID, events.BacklogItemRemoved{
		BaseEvent: b.baseEvent(events.BacklogItemRemovedEvent),
		ItemID:    item.ID,
		ProductID: item.ProductID,
	})

	return nil
}

// ListProductBacklog returns the product's items that sit in no sprint.
func (b *Backlog) ListProductBacklog(ctx context.Context, productID string) ([]*models.BacklogItem, error) {
	product, err := b.resolveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return b.persistence.BacklogItemRepository().ListProductBacklog(ctx, product.ID)
}

// ListSprintBacklog returns the items of the sprint identified by its
// product-scoped number. The same activity policy as assignment applies.
func (b *Backlog) ListSprintBacklog(ctx context.Context, productID string, sprintNumber int) ([]*models.BacklogItem, error) {
	product, err := b.resolveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	sprint, err := b.resolveOpenSprint(ctx, product.ID, sprintNumber)
	if err != nil {
		return nil, err
	}

	return b.persistence.BacklogItemRepository().ListBySprint(ctx, sprint.ID)
}

// ListFinishedItems returns the sprint's items standing in a terminal state
// of the owning product's workflow.
func (b *Backlog) ListFinishedItems(ctx context.Context, sprintID string) ([]*models.BacklogItem, error) {
	sprint, err := b.persistence.SprintRepository().GetByID(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	if sprint == nil {
		return nil, ErrSprintNotFound
	}

	_, snapshot, err := b.resolveProductWorkflow(ctx, sprint.ProductID)
	if err != nil {
		return nil, err
	}

	items, err := b.persistence.BacklogItemRepository().ListBySprint(ctx, sprint.ID)
	if err != nil {
		return nil, err
	}

	finished := make([]*models.BacklogItem, 0, len(items))

	for _, item := range items {
		if snapshot.IsTerminal(item.Status.Label) {
			finished = append(finished, item)
		}
	}

	return finished, nil
}

func (b *Backlog) resolveProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := b.persistence.ProductRepository().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	// Soft-deleted products are filtered at the repository, so nil covers
	// both missing and deleted.
	if product == nil {
		return nil, ErrProductNotFound
	}

	return product, nil
}

func (b *Backlog) resolveProductWorkflow(ctx context.Context, productID string) (*models.Product, *workflow.Snapshot, error) {
	product, err := b.resolveProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	if product.WorkflowName == "" {
		return nil, nil, ErrWorkflowNotConfigured
	}

	snapshot, err := b.engine.Snapshot(ctx, product.WorkflowName)
	if err != nil {
		return nil, nil, err
	}

	return product, snapshot, nil
}

func (b *Backlog) resolveOpenSprint(ctx context.Context, productID string, number int) (*models.Sprint, error) {
	sprint, err := b.persistence.SprintRepository().GetByProductAndNumber(ctx, productID, number)
	if err != nil {
		return nil, err
	}

	if sprint == nil || !sprint.Open(time.Now().UTC()) {
		return nil, ErrSprintNotActive
	}

	return sprint, nil
}

// resolveItem loads an item; when productID is set the item must belong to
// that product, so sprint lookups scoped by product cannot cross over.
func (b *Backlog) resolveItem(ctx context.Context, itemID, productID string) (*models.BacklogItem, error) {
	item, err := b.persistence.BacklogItemRepository().GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if item == nil || (productID != "" && item.ProductID != productID) {
		return nil, ErrItemNotFound
	}

	return item, nil
}

func (b *Backlog) updateItem(ctx context.Context, item *models.BacklogItem) error {
	err := b.persistence.BacklogItemRepository().Update(ctx, item)
	if err != nil {
		if persistence.IsVersionConflict(err) {
			return ErrConflictingUpdate
		}

		return fmt.Errorf("failed to update backlog item: %w", err)
	}

	return nil
}

func (b *Backlog) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// publish is best-effort: a failed notification must not fail the committed
// mutation, only log it.
func (b *Backlog) publish(ctx context.Context, key string, event eventbus.Event) {
	if b.publisher == nil {
		return
	}

	err := b.publisher.Publish(ctx, key, event)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
