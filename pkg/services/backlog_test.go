package services_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
	"github.com/backloghq/backlogd/pkg/persistence/file"
	"github.com/backloghq/backlogd/pkg/services"
	"github.com/backloghq/backlogd/pkg/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type backlogFixture struct {
	backlog *services.Backlog
	p       *file.Persistence
	product *models.Product
	sprint  *models.Sprint
}

func setupBacklog(t *testing.T) (*backlogFixture, context.Context) {
	t.Helper()

	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())

	definition := &models.WorkflowDefinition{
		Name: "Scrum",
		States: []models.State{
			{Name: "To do", Ordinal: 1},
			{Name: "In progress", Ordinal: 2},
			{Name: "Done", Ordinal: 3, Terminal: true},
		},
		Transitions: []models.Transition{
			{From: "To do", To: "In progress", Direction: models.DirectionForward, Roles: []models.Role{models.RoleTeamMember}},
			{From: "In progress", To: "Done", Direction: models.DirectionForward, Roles: []models.Role{models.RoleTeamMember}},
			{From: "In progress", To: "To do", Direction: models.DirectionBackward, Roles: []models.Role{models.RoleScrumMaster}},
		},
	}
	require.NoError(t, p.WorkflowDefinitionRepository().Save(ctx, definition))

	product := &models.Product{Name: "Billing", WorkflowName: "Scrum"}
	require.NoError(t, p.ProductRepository().Save(ctx, product))

	sprint := &models.Sprint{ProductID: product.ID, Number: 1, StartsAt: time.Now().UTC().Add(-time.Hour)}
	require.NoError(t, p.SprintRepository().Save(ctx, sprint))

	logger := testLogger()
	engine := workflow.NewEngine(p.WorkflowDefinitionRepository(), logger)
	tracer := noop.NewTracerProvider().Tracer("test")

	return &backlogFixture{
		backlog: services.NewBacklog(p, engine, nil, tracer, logger),
		p:       p,
		product: product,
		sprint:  sprint,
	}, ctx
}

func (f *backlogFixture) addItem(t *testing.T, ctx context.Context, title string) *models.BacklogItem {
	t.Helper()

	item, err := f.backlog.AddToProductBacklog(ctx, f.product.ID, &models.BacklogItem{Title: title})
	require.NoError(t, err)

	return item
}

func TestBacklog_AddToProductBacklog(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, f.product.ID, item.ProductID)
	assert.Nil(t, item.SprintID)
	assert.Equal(t, models.Status{Ordinal: 1, Label: "To do"}, item.Status)
	assert.Equal(t, int64(1), item.Version)
}

func TestBacklog_AddToProductBacklogUnknownProduct(t *testing.T) {
	f, ctx := setupBacklog(t)

	_, err := f.backlog.AddToProductBacklog(ctx, "no-such-product", &models.BacklogItem{Title: "x"})
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestBacklog_AddToProductBacklogDeletedProduct(t *testing.T) {
	f, ctx := setupBacklog(t)

	require.NoError(t, f.p.ProductRepository().SoftDelete(ctx, f.product.ID))

	_, err := f.backlog.AddToProductBacklog(ctx, f.product.ID, &models.BacklogItem{Title: "x"})
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestBacklog_AddToProductBacklogNoWorkflow(t *testing.T) {
	f, ctx := setupBacklog(t)

	bare := &models.Product{Name: "Bare"}
	require.NoError(t, f.p.ProductRepository().Save(ctx, bare))

	_, err := f.backlog.AddToProductBacklog(ctx, bare.ID, &models.BacklogItem{Title: "x"})
	assert.ErrorIs(t, err, services.ErrWorkflowNotConfigured)
}

func TestBacklog_AssignToSprint(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	// Advance the item first: assignment must reset it to the entry state.
	moved, err := f.backlog.ChangeState(ctx, item.ID, "In progress")
	require.NoError(t, err)
	require.Equal(t, "In progress", moved.Status.Label)

	assigned, err := f.backlog.AssignToSprint(ctx, f.product.ID, item.ID, 1, nil)
	require.NoError(t, err)

	require.NotNil(t, assigned.SprintID)
	assert.Equal(t, f.sprint.ID, *assigned.SprintID)
	assert.Equal(t, models.Status{Ordinal: 1, Label: "To do"}, assigned.Status)
}

func TestBacklog_AssignToSprintAppliesDraft(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	title := "Implement invoicing v2"
	effort := 8

	assigned, err := f.backlog.AssignToSprint(ctx, f.product.ID, item.ID, 1, &services.ItemDraft{
		Title:  &title,
		Effort: &effort,
	})
	require.NoError(t, err)

	assert.Equal(t, "Implement invoicing v2", assigned.Title)
	assert.Equal(t, 8, assigned.Effort)
	assert.Equal(t, item.Priority, assigned.Priority) // untouched by the draft

	stored, err := f.p.BacklogItemRepository().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Implement invoicing v2", stored.Title)
}

func TestBacklog_AssignToSprintNotActive(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	tests := []struct {
		name   string
		sprint *models.Sprint
		number int
	}{
		{name: "missing number", number: 9},
		{
			name:   "not yet started",
			sprint: &models.Sprint{ProductID: f.product.ID, Number: 2, StartsAt: time.Now().UTC().Add(time.Hour)},
			number: 2,
		},
		{
			name: "already over",
			sprint: &models.Sprint{
				ProductID: f.product.ID, Number: 3,
				StartsAt: time.Now().UTC().Add(-2 * time.Hour), EndsAt: time.Now().UTC().Add(-time.Hour),
			},
			number: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.sprint != nil {
				require.NoError(t, f.p.SprintRepository().Save(ctx, tt.sprint))
			}

			_, err := f.backlog.AssignToSprint(ctx, f.product.ID, item.ID, tt.number, nil)
			assert.ErrorIs(t, err, services.ErrSprintNotActive)
		})
	}
}

func TestBacklog_AssignToSprintForeignItem(t *testing.T) {
	f, ctx := setupBacklog(t)

	other := &models.Product{Name: "Other", WorkflowName: "Scrum"}
	require.NoError(t, f.p.ProductRepository().Save(ctx, other))

	foreign, err := f.backlog.AddToProductBacklog(ctx, other.ID, &models.BacklogItem{Title: "foreign"})
	require.NoError(t, err)

	_, err = f.backlog.AssignToSprint(ctx, f.product.ID, foreign.ID, 1, nil)
	assert.ErrorIs(t, err, services.ErrItemNotFound)
}

func TestBacklog_ChangeState(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	moved, err := f.backlog.ChangeState(ctx, item.ID, "In progress")
	require.NoError(t, err)
	assert.Equal(t, models.Status{Ordinal: 2, Label: "In progress"}, moved.Status)

	// Backward along a declared edge.
	back, err := f.backlog.ChangeState(ctx, item.ID, "To do")
	require.NoError(t, err)
	assert.Equal(t, models.Status{Ordinal: 1, Label: "To do"}, back.Status)
}

func TestBacklog_ChangeStateSameStateIsNoOp(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	same, err := f.backlog.ChangeState(ctx, item.ID, "To do")
	require.NoError(t, err)
	assert.Equal(t, item.Version, same.Version)
}

func TestBacklog_ChangeStateRejectsNonAdjacent(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	// Membership alone is not enough: there is no To do -> Done edge.
	_, err := f.backlog.ChangeState(ctx, item.ID, "Done")
	assert.ErrorIs(t, err, services.ErrIllegalTransition)
}

func TestBacklog_ChangeStateUnknownState(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	// A state outside the workflow is rejected as an illegal transition,
	// same as a non-adjacent member.
	_, err := f.backlog.ChangeState(ctx, item.ID, "Shipped")
	assert.ErrorIs(t, err, services.ErrIllegalTransition)
}

// gatedItemRepository holds GetByID callers at a barrier while the gate is
// up, so two racing writers are guaranteed to read the same item version.
type gatedItemRepository struct {
	persistence.BacklogItemRepository
	barrier *sync.WaitGroup
	gate    atomic.Bool
}

func (g *gatedItemRepository) GetByID(ctx context.Context, id string) (*models.BacklogItem, error) {
	item, err := g.BacklogItemRepository.GetByID(ctx, id)
	if g.gate.Load() {
		g.barrier.Done()
		g.barrier.Wait()
	}

	return item, err
}

type gatedPersistence struct {
	persistence.Persistence
	items *gatedItemRepository
}

func (g *gatedPersistence) BacklogItemRepository() persistence.BacklogItemRepository {
	return g.items
}

func TestBacklog_ChangeStateConcurrentConflict(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	var barrier sync.WaitGroup
	barrier.Add(2)

	items := &gatedItemRepository{BacklogItemRepository: f.p.BacklogItemRepository(), barrier: &barrier}
	gated := &gatedPersistence{Persistence: f.p, items: items}

	logger := testLogger()
	racing := services.NewBacklog(
		gated,
		workflow.NewEngine(f.p.WorkflowDefinitionRepository(), logger),
		nil,
		noop.NewTracerProvider().Tracer("test"),
		logger,
	)

	items.gate.Store(true)

	errs := make(chan error, 2)

	for i := 0; i < 2; i++ {
		go func() {
			_, err := racing.ChangeState(ctx, item.ID, "In progress")
			errs <- err
		}()
	}

	first := <-errs
	second := <-errs
	items.gate.Store(false)

	// Both writers held version 1: exactly one compare-and-swap wins and
	// the other must surface the conflict to its caller.
	if first == nil {
		assert.ErrorIs(t, second, services.ErrConflictingUpdate)
	} else {
		assert.NoError(t, second)
		assert.ErrorIs(t, first, services.ErrConflictingUpdate)
	}

	stored, err := f.p.BacklogItemRepository().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "In progress", stored.Status.Label)
	assert.Equal(t, int64(2), stored.Version)
}

func TestBacklog_RemoveItem(t *testing.T) {
	f, ctx := setupBacklog(t)

	item := f.addItem(t, ctx, "Implement invoicing")

	require.NoError(t, f.backlog.RemoveItem(ctx, item.ID))

	err := f.backlog.RemoveItem(ctx, item.ID)
	assert.ErrorIs(t, err, services.ErrItemNotFound)
}

func TestBacklog_Listings(t *testing.T) {
	f, ctx := setupBacklog(t)

	first := f.addItem(t, ctx, "first")
	second := f.addItem(t, ctx, "second")

	_, err := f.backlog.AssignToSprint(ctx, f.product.ID, first.ID, 1, nil)
	require.NoError(t, err)

	backlog, err := f.backlog.ListProductBacklog(ctx, f.product.ID)
	require.NoError(t, err)
	require.Len(t, backlog, 1)
	assert.Equal(t, second.ID, backlog[0].ID)

	inSprint, err := f.backlog.ListSprintBacklog(ctx, f.product.ID, 1)
	require.NoError(t, err)
	require.Len(t, inSprint, 1)
	assert.Equal(t, first.ID, inSprint[0].ID)
}

func TestBacklog_ListFinishedItems(t *testing.T) {
	f, ctx := setupBacklog(t)

	done := f.addItem(t, ctx, "done item")
	open := f.addItem(t, ctx, "open item")

	_, err := f.backlog.AssignToSprint(ctx, f.product.ID, done.ID, 1, nil)
	require.NoError(t, err)
	_, err = f.backlog.AssignToSprint(ctx, f.product.ID, open.ID, 1, nil)
	require.NoError(t, err)

	_, err = f.backlog.ChangeState(ctx, done.ID, "In progress")
	require.NoError(t, err)
	_, err = f.backlog.ChangeState(ctx, done.ID, "Done")
	require.NoError(t, err)

	finished, err := f.backlog.ListFinishedItems(ctx, f.sprint.ID)
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, done.ID, finished[0].ID)
}

func TestBacklog_ListFinishedItemsUnknownSprint(t *testing.T) {
	f, ctx := setupBacklog(t)

	_, err := f.backlog.ListFinishedItems(ctx, "no-such-sprint")
	assert.ErrorIs(t, err, services.ErrSprintNotFound)
}

func TestBacklog_HealthCheck(t *testing.T) {
	f, ctx := setupBacklog(t)

	message, healthy := f.backlog.HealthCheck(ctx)
	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
