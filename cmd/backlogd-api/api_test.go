package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/backloghq/backlogd/pkg/channels/gochannel"
	"github.com/backloghq/backlogd/pkg/eventbus"
	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence/file"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	api := NewAPI(
		slog.Default(),
		file.NewPersistence(t.TempDir()),
		eventbus.NewWatermillEventBus(pub, sub),
		noop.NewTracerProvider().Tracer("test"),
	)

	app, err := api.App(context.Background())
	require.NoError(t, err)

	return app
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Backlogd API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_GetWorkflows_Empty(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var definitions []models.WorkflowDefinition

	err = json.NewDecoder(resp.Body).Decode(&definitions)
	require.NoError(t, err)
	assert.Empty(t, definitions)
}

func TestAPI_WorkflowLifecycle(t *testing.T) {
	app := setupTestApp(t)

	definition := models.WorkflowDefinition{
		Name: "Scrum",
		States: []models.State{
			{Name: "To do", Ordinal: 1},
			{Name: "Done", Ordinal: 2, Terminal: true},
		},
		Transitions: []models.Transition{
			{From: "To do", To: "Done", Direction: models.DirectionForward, Roles: []models.Role{models.RoleTeamMember}},
		},
	}

	payload, err := json.Marshal(definition)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/workflows/Scrum/states/To%20do/next", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var groups [][]string

	err = json.NewDecoder(resp.Body).Decode(&groups)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"Done"}, groups[0])
}

func TestAPI_CORS_Headers(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/workflows", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
