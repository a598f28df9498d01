// Package main provides the backlogd API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/backloghq/backlogd/pkg/eventbus"
	"github.com/backloghq/backlogd/pkg/events"
	"github.com/backloghq/backlogd/pkg/persistence"
	"github.com/backloghq/backlogd/pkg/services"
	"github.com/backloghq/backlogd/pkg/web"
	"github.com/backloghq/backlogd/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App(ctx context.Context) (*fiber.App, error) {
	engine := workflow.NewEngine(a.persistence.WorkflowDefinitionRepository(), a.logger)

	err := a.subscribeInvalidations(ctx, engine)
	if err != nil {
		return nil, err
	}

	backlogService := services.NewBacklog(a.persistence, engine, a.eventBus, a.tracer, a.logger)
	directoryService := services.NewDirectory(a.persistence, a.logger)
	definitionService := services.NewDefinition(a.persistence, engine, a.eventBus, a.logger)
	sprintService := services.NewSprint(a.persistence, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(
		backlogService,
		directoryService,
		definitionService,
		sprintService,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Backlogd API")
	})

	b := app.Group("/backlog")
	b.Post("/target/:targetId/item", handlers.AddItem)
	b.Put("/target/:targetId/item/sprint", handlers.AssignItemToSprint)
	b.Get("/product/user/:username", handlers.GetProductsForUser)
	b.Get("/items/product/:productId", handlers.GetProductBacklog)
	b.Get("/items/product/:productId/sprint", handlers.GetSprintBacklog)
	b.Put("/items/sprint/:direction/:itemId", handlers.ChangeItemState)
	b.Delete("/items/:itemId", handlers.RemoveItem)
	b.Get("/getFinishedBacklogItems/:sprintId", handlers.GetFinishedItems)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:name", handlers.GetWorkflow)
	w.Put("/:name", handlers.UpdateWorkflow)
	w.Delete("/:name", handlers.DeleteWorkflow)
	w.Get("/:name/states", handlers.GetVisibleStates)
	w.Get("/:name/states/:state/next", handlers.GetNextStates)

	app.Post("/sprints", handlers.CreateSprint)

	app.Get("/health", handlers.HealthCheck)

	return app, nil
}

// subscribeInvalidations drops the engine's cached index whenever any
// instance edits a workflow definition.
func (a *API) subscribeInvalidations(ctx context.Context, engine *workflow.Engine) error {
	err := a.eventBus.Handle(events.WorkflowDefinitionSavedEvent, func(_ context.Context, event interface{}) error {
		if saved, ok := event.(*events.WorkflowDefinitionSaved); ok {
			engine.Invalidate(saved.WorkflowName)
		}

		return nil
	})
	if err != nil {
		return err
	}

	err = a.eventBus.Handle(events.WorkflowDefinitionDeletedEvent, func(_ context.Context, event interface{}) error {
		if deleted, ok := event.(*events.WorkflowDefinitionDeleted); ok {
			engine.Invalidate(deleted.WorkflowName)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) Start(ctx context.Context, port int) error {
	app, err := a.App(ctx)
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
