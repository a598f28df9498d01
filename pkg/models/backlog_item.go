package models

import "time"

// BacklogItem is a unit of work scoped to a product. A nil SprintID means
// the item sits in the product backlog; otherwise it belongs to that
// sprint's backlog. Status always names a state of the owning product's
// workflow definition.
//
// Version backs the optimistic concurrency check: every successful update
// increments it, and an update against a stale version is rejected.
type BacklogItem struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	SprintID    *string   `json:"sprint_id,omitempty"`
	Title       string    `json:"title"       validate:"required,min=3"`
	Description string    `json:"description"`
	Effort      int       `json:"effort"      validate:"min=0"`
	Priority    int       `json:"priority"    validate:"min=0"`
	Status      Status    `json:"status"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InSprint reports whether the item resides in a sprint backlog.
func (b *BacklogItem) InSprint() bool {
	return b.SprintID != nil
}
