package file

import (
	"testing"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence(t.TempDir())
	require.NoError(t, p.HealthCheck(t.Context()))

	missing := NewPersistence("/nonexistent/backlogd-test")
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestWorkflowDefinitionRepository_SaveAndGet(t *testing.T) {
	repo := NewWorkflowDefinitionRepository(t.TempDir())

	definition := &models.WorkflowDefinition{
		Name: "Simple",
		States: []models.State{
			{Name: "To do", Ordinal: 1},
			{Name: "Done", Ordinal: 2, Terminal: true},
		},
	}
	require.NoError(t, repo.Save(t.Context(), definition))
	assert.False(t, definition.CreatedAt.IsZero())

	fetched, err := repo.GetByName(t.Context(), "Simple")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Len(t, fetched.States, 2)

	missing, err := repo.GetByName(t.Context(), "Unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	definitions, err := repo.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, definitions, 1)

	require.NoError(t, repo.Delete(t.Context(), "Simple"))

	fetched, err = repo.GetByName(t.Context(), "Simple")
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestProductRepository_SoftDelete(t *testing.T) {
	repo := NewProductRepository(t.TempDir())

	product := &models.Product{ID: "p-1", Name: "Billing", WorkflowName: "Simple", TeamID: "t-1"}
	require.NoError(t, repo.Save(t.Context(), product))

	fetched, err := repo.GetByID(t.Context(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)

	require.NoError(t, repo.SoftDelete(t.Context(), "p-1"))

	// Soft-deleted products are absent from lookups.
	fetched, err = repo.GetByID(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Nil(t, fetched)

	byTeam, err := repo.GetByTeams(t.Context(), []string{"t-1"})
	require.NoError(t, err)
	assert.Empty(t, byTeam)

	err = repo.SoftDelete(t.Context(), "p-1")
	assert.ErrorIs(t, err, persistence.ErrProductNotFound)
}

func TestProductRepository_GetByTeams(t *testing.T) {
	repo := NewProductRepository(t.TempDir())

	require.NoError(t, repo.Save(t.Context(), &models.Product{ID: "p-1", Name: "Billing", TeamID: "t-1"}))
	require.NoError(t, repo.Save(t.Context(), &models.Product{ID: "p-2", Name: "Shipping", TeamID: "t-2"}))
	require.NoError(t, repo.Save(t.Context(), &models.Product{ID: "p-3", Name: "Catalog", TeamID: "t-3"}))

	products, err := repo.GetByTeams(t.Context(), []string{"t-1", "t-3"})
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestTeamRepository_RoleQueries(t *testing.T) {
	repo := NewTeamRepository(t.TempDir())

	require.NoError(t, repo.Save(t.Context(), &models.Team{
		ID: "t-1", Name: "Alpha", ScrumMaster: "anna", ProductOwner: "otto", Members: []string{"mila"},
	}))
	require.NoError(t, repo.Save(t.Context(), &models.Team{
		ID: "t-2", Name: "Beta", ScrumMaster: "mila", ProductOwner: "anna", Members: []string{"otto"},
	}))

	asMaster, err := repo.GetByScrumMaster(t.Context(), "anna")
	require.NoError(t, err)
	require.Len(t, asMaster, 1)
	assert.Equal(t, "t-1", asMaster[0].ID)

	asOwner, err := repo.GetByProductOwner(t.Context(), "anna")
	require.NoError(t, err)
	require.Len(t, asOwner, 1)
	assert.Equal(t, "t-2", asOwner[0].ID)

	asMember, err := repo.GetByMember(t.Context(), "otto")
	require.NoError(t, err)
	require.Len(t, asMember, 1)
	assert.Equal(t, "t-2", asMember[0].ID)

	none, err := repo.GetByMember(t.Context(), "stranger")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSprintRepository_GetByProductAndNumber(t *testing.T) {
	repo := NewSprintRepository(t.TempDir())

	require.NoError(t, repo.Save(t.Context(), &models.Sprint{ID: "s-1", ProductID: "p-1", Number: 1}))
	require.NoError(t, repo.Save(t.Context(), &models.Sprint{ID: "s-2", ProductID: "p-1", Number: 2}))
	require.NoError(t, repo.Save(t.Context(), &models.Sprint{ID: "s-3", ProductID: "p-2", Number: 1}))

	sprint, err := repo.GetByProductAndNumber(t.Context(), "p-1", 2)
	require.NoError(t, err)
	require.NotNil(t, sprint)
	assert.Equal(t, "s-2", sprint.ID)

	sprint, err = repo.GetByProductAndNumber(t.Context(), "p-2", 3)
	require.NoError(t, err)
	assert.Nil(t, sprint)

	maxNumber, err := repo.MaxNumber(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 2, maxNumber)

	maxNumber, err = repo.MaxNumber(t.Context(), "p-9")
	require.NoError(t, err)
	assert.Equal(t, 0, maxNumber)
}

func TestBacklogItemRepository_Save_AssignsID(t *testing.T) {
	repo := NewBacklogItemRepository(t.TempDir())

	first := &models.BacklogItem{ProductID: "p-1", Title: "First"}
	require.NoError(t, repo.Save(t.Context(), first))
	assert.NotEmpty(t, first.ID)

	second := &models.BacklogItem{ProductID: "p-1", Title: "Second"}
	require.NoError(t, repo.Save(t.Context(), second))
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)

	// Both items must land in distinct files.
	backlog, err := repo.ListProductBacklog(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Len(t, backlog, 2)

	// A caller-provided id is kept.
	provided := &models.BacklogItem{ID: "i-keep", ProductID: "p-2", Title: "Pinned"}
	require.NoError(t, repo.Save(t.Context(), provided))
	assert.Equal(t, "i-keep", provided.ID)
}

func TestBacklogItemRepository_Update_VersionConflict(t *testing.T) {
	repo := NewBacklogItemRepository(t.TempDir())

	item := &models.BacklogItem{
		ID:        "i-1",
		ProductID: "p-1",
		Title:     "Implement login",
		Status:    models.Status{Ordinal: 1, Label: "To do"},
	}
	require.NoError(t, repo.Save(t.Context(), item))
	assert.Equal(t, int64(1), item.Version)

	first, err := repo.GetByID(t.Context(), "i-1")
	require.NoError(t, err)

	second, err := repo.GetByID(t.Context(), "i-1")
	require.NoError(t, err)

	first.Status = models.Status{Ordinal: 2, Label: "In progress"}
	require.NoError(t, repo.Update(t.Context(), first))
	assert.Equal(t, int64(2), first.Version)

	// The concurrent reader still holds version 1; its write must lose.
	second.Status = models.Status{Ordinal: 3, Label: "Done"}
	err = repo.Update(t.Context(), second)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)

	stored, err := repo.GetByID(t.Context(), "i-1")
	require.NoError(t, err)
	assert.Equal(t, "In progress", stored.Status.Label)
}

func TestBacklogItemRepository_Listings(t *testing.T) {
	repo := NewBacklogItemRepository(t.TempDir())
	sprintID := "s-1"

	require.NoError(t, repo.Save(t.Context(), &models.BacklogItem{
		ID: "i-1", ProductID: "p-1", Title: "In backlog", Priority: 1,
	}))
	require.NoError(t, repo.Save(t.Context(), &models.BacklogItem{
		ID: "i-2", ProductID: "p-1", Title: "Urgent in backlog", Priority: 5,
	}))
	require.NoError(t, repo.Save(t.Context(), &models.BacklogItem{
		ID: "i-3", ProductID: "p-1", Title: "In sprint", SprintID: &sprintID,
	}))

	backlog, err := repo.ListProductBacklog(t.Context(), "p-1")
	require.NoError(t, err)
	require.Len(t, backlog, 2)
	assert.Equal(t, "i-2", backlog[0].ID) // highest priority first

	inSprint, err := repo.ListBySprint(t.Context(), sprintID)
	require.NoError(t, err)
	require.Len(t, inSprint, 1)
	assert.Equal(t, "i-3", inSprint[0].ID)
}

func TestBacklogItemRepository_Delete(t *testing.T) {
	repo := NewBacklogItemRepository(t.TempDir())

	require.NoError(t, repo.Save(t.Context(), &models.BacklogItem{ID: "i-1", ProductID: "p-1", Title: "Doomed"}))
	require.NoError(t, repo.Delete(t.Context(), "i-1"))

	fetched, err := repo.GetByID(t.Context(), "i-1")
	require.NoError(t, err)
	assert.Nil(t, fetched)

	// Deleting an absent item is not an error at the repository level.
	assert.NoError(t, repo.Delete(t.Context(), "i-1"))
}
