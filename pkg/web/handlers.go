// Package web provides the HTTP handlers for the backlog API.
package web

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/services"
)

type APIHandlers struct {
	backlogService    *services.Backlog
	directoryService  *services.Directory
	definitionService *services.Definition
	sprintService     *services.Sprint
	validator         *validator.Validate
}

func NewAPIHandlers(
	backlogService *services.Backlog,
	directoryService *services.Directory,
	definitionService *services.Definition,
	sprintService *services.Sprint,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		backlogService:    backlogService,
		directoryService:  directoryService,
		definitionService: definitionService,
		sprintService:     sprintService,
		validator:         validator,
	}
}

// AddItem handles POST /backlog/target/:targetId/item.
func (h *APIHandlers) AddItem(c fiber.Ctx) error {
	productID := c.Params("targetId")
	if productID == "" {
		return badRequest(c, "Product ID is required")
	}

	var req CreateItemRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.backlogService.AddToProductBacklog(c.Context(), productID, &models.BacklogItem{
		Title:       req.Title,
		Description: req.Description,
		Effort:      req.Effort,
		Priority:    req.Priority,
	})
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toItemResponse(item))
}

// AssignItemToSprint handles PUT /backlog/target/:targetId/item/sprint.
func (h *APIHandlers) AssignItemToSprint(c fiber.Ctx) error {
	productID := c.Params("targetId")
	if productID == "" {
		return badRequest(c, "Product ID is required")
	}

	var req AssignItemRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.backlogService.AssignToSprint(c.Context(), productID, req.ItemID, req.SprintNumber, &services.ItemDraft{
		Title:       req.Title,
		Description: req.Description,
		Effort:      req.Effort,
		Priority:    req.Priority,
	})
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.JSON(toItemResponse(item))
}

// GetProductsForUser handles GET /backlog/product/user/:username.
func (h *APIHandlers) GetProductsForUser(c fiber.Ctx) error {
	username := c.Params("username")
	if username == "" {
		return badRequest(c, "Username is required")
	}

	products, err := h.directoryService.FindProductsForUser(c.Context(), username)
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.JSON(toProductResponses(products))
}

// GetProductBacklog handles GET /backlog/items/product/:productId.
func (h *APIHandlers) GetProductBacklog(c fiber.Ctx) error {
	productID := c.Params("productId")
	if productID == "" {
		return badRequest(c, "Product ID is required")
	}

	items, err := h.backlogService.ListProductBacklog(c.Context(), productID)
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.JSON(toItemResponses(items))
}

// GetSprintBacklog handles GET /backlog/items/product/:productId/sprint?number=N.
func (h *APIHandlers) GetSprintBacklog(c fiber.Ctx) error {
	productID := c.Params("productId")
	if productID == "" {
		return badRequest(c, "Product ID is required")
	}

	number, err := strconv.Atoi(c.Query("number"))
	if err != nil || number < 1 {
		return badRequest(c, "Query parameter 'number' must be a positive integer")
	}

	items, err := h.backlogService.ListSprintBacklog(c.Context(), productID, number)
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.JSON(toItemResponses(items))
}

// ChangeItemState handles PUT /backlog/items/sprint/:direction/:itemId.
// The direction segment is either the symbolic "forward"/"backward", which
// resolves to the first legal target, or an explicit state label.
func (h *APIHandlers) ChangeItemState(c fiber.Ctx) error {
	itemID := c.Params("itemId")
	if itemID == "" {
		return badRequest(c, "Item ID is required")
	}

	// State labels may carry spaces, so the segment arrives percent-encoded.
	requested, err := url.PathUnescape(c.Params("direction"))
	if err != nil || requested == "" {
		return badRequest(c, "Direction or state is required")
	}

	if requested == string(models.DirectionForward) || requested == string(models.DirectionBackward) {
		target, err := h.backlogService.NextStateFor(c.Context(), itemID, models.Direction(requested))
		if err != nil {
			return handleBacklogError(c, err)
		}

		requested = target
	}

	item, err := h.backlogService.ChangeState(c.Context(), itemID, requested)
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.JSON(toItemResponse(item))
}

// GetFinishedItems handles GET /backlog/getFinishedBacklogItems/:sprintId.
func (h *APIHandlers) GetFinishedItems(c fiber.Ctx) error {
	sprintID := c.Params("sprintId")
	if sprintID == "" {
		return badRequest(c, "Sprint ID is required")
	}

	items, err := h.backlogService.ListFinishedItems(c.Context(), sprintID)
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.JSON(toItemResponses(items))
}

// RemoveItem handles DELETE /backlog/items/:itemId.
func (h *APIHandlers) RemoveItem(c fiber.Ctx) error {
	itemID := c.Params("itemId")
	if itemID == "" {
		return badRequest(c, "Item ID is required")
	}

	err := h.backlogService.RemoveItem(c.Context(), itemID)
	if err != nil {
		return handleBacklogError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CreateSprint handles POST /sprints.
func (h *APIHandlers) CreateSprint(c fiber.Ctx) error {
	var req CreateSprintRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	sprint, err := h.sprintService.Open(c.Context(), req.ProductID, req.StartsAt, req.EndsAt)
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSprintResponse(sprint))
}

// GetWorkflows handles GET /workflows.
func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	definitions, err := h.definitionService.List(c.Context())
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.JSON(definitions)
}

// GetWorkflow handles GET /workflows/:name.
func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Workflow name is required")
	}

	definition, err := h.definitionService.Fetch(c.Context(), name)
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.JSON(definition)
}

// CreateWorkflow handles POST /workflows.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(definition); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.definitionService.Create(c.Context(), &definition)
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateWorkflow handles PUT /workflows/:name.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Workflow name is required")
	}

	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.definitionService.Update(c.Context(), name, &definition)
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.JSON(updated)
}

// DeleteWorkflow handles DELETE /workflows/:name.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Workflow name is required")
	}

	err := h.definitionService.Delete(c.Context(), name)
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetVisibleStates handles GET /workflows/:name/states?role=R.
func (h *APIHandlers) GetVisibleStates(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Workflow name is required")
	}

	role := c.Query("role")
	if role == "" {
		return badRequest(c, "Query parameter 'role' is required")
	}

	states, err := h.definitionService.VisibleStates(c.Context(), name, models.Role(role))
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.JSON(states)
}

// GetNextStates handles GET /workflows/:name/states/:state/next.
func (h *APIHandlers) GetNextStates(c fiber.Ctx) error {
	name := c.Params("name")

	state, err := url.PathUnescape(c.Params("state"))
	if err != nil || name == "" || state == "" {
		return badRequest(c, "Workflow name and state are required")
	}

	groups, err := h.definitionService.NextStates(c.Context(), name, state)
	if err != nil {
		return handleAdminError(c, err)
	}

	return c.JSON(groups)
}

// HealthCheck handles GET /health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.backlogService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Backlogd API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Backlogd API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
