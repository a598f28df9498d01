package web

import (
	"time"

	"github.com/backloghq/backlogd/pkg/models"
)

// CreateItemRequest is the payload for adding an item to a product backlog.
type CreateItemRequest struct {
	Title       string `json:"title"       validate:"required,min=1"`
	Description string `json:"description"`
	Effort      int    `json:"effort"      validate:"min=0"`
	Priority    int    `json:"priority"    validate:"min=0"`
}

// AssignItemRequest moves an item into one of the product's sprints. The
// optional fields edit the item in the same write; omitted fields keep
// their stored value.
type AssignItemRequest struct {
	ItemID       string  `json:"item_id"       validate:"required"`
	SprintNumber int     `json:"sprint_number" validate:"required,min=1"`
	Title        *string `json:"title,omitempty"       validate:"omitempty,min=1"`
	Description  *string `json:"description,omitempty"`
	Effort       *int    `json:"effort,omitempty"      validate:"omitempty,min=0"`
	Priority     *int    `json:"priority,omitempty"    validate:"omitempty,min=0"`
}

// CreateSprintRequest opens the next-numbered sprint for a product.
type CreateSprintRequest struct {
	ProductID string    `json:"product_id" validate:"required"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
}

// ItemResponse carries an item over the wire with the status in its legacy
// "<ordinal>*<label>" encoding.
type ItemResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	SprintID    *string   `json:"sprint_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Effort      int       `json:"effort"`
	Priority    int       `json:"priority"`
	Status      string    `json:"status"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	WorkflowName string `json:"workflow_name,omitempty"`
	TeamID       string `json:"team_id,omitempty"`
}

type SprintResponse struct {
	ID        string     `json:"id"`
	ProductID string     `json:"product_id"`
	Number    int        `json:"number"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
}

func toItemResponse(item *models.BacklogItem) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		ProductID:   item.ProductID,
		SprintID:    item.SprintID,
		Title:       item.Title,
		Description: item.Description,
		Effort:      item.Effort,
		Priority:    item.Priority,
		Status:      item.Status.String(),
		Version:     item.Version,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func toItemResponses(items []*models.BacklogItem) []ItemResponse {
	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}

	return responses
}

func toProductResponse(product *models.Product) ProductResponse {
	return ProductResponse{
		ID:           product.ID,
		Name:         product.Name,
		Description:  product.Description,
		WorkflowName: product.WorkflowName,
		TeamID:       product.TeamID,
	}
}

func toProductResponses(products []*models.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		responses = append(responses, toProductResponse(product))
	}

	return responses
}

func toSprintResponse(sprint *models.Sprint) SprintResponse {
	response := SprintResponse{
		ID:        sprint.ID,
		ProductID: sprint.ProductID,
		Number:    sprint.Number,
	}

	if !sprint.StartsAt.IsZero() {
		startsAt := sprint.StartsAt
		response.StartsAt = &startsAt
	}

	if !sprint.EndsAt.IsZero() {
		endsAt := sprint.EndsAt
		response.EndsAt = &endsAt
	}

	return response
}
