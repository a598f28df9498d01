package models

import "time"

// Product is the unit that owns a backlog and exactly one workflow
// definition. Products are soft-deleted: a set DeletedAt makes the product
// absent everywhere in the core.
type Product struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"          validate:"required,min=3"`
	Version      string     `json:"version"`
	Description  string     `json:"description"`
	WorkflowName string     `json:"workflow_name"`
	TeamID       string     `json:"team_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the product has been soft-deleted.
func (p *Product) Deleted() bool {
	return p.DeletedAt != nil
}

// Team is a scrum team working on one or more products. The scrum master
// and product owner are single users, members is the rest of the team.
type Team struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"          validate:"required"`
	ScrumMaster  string    `json:"scrum_master"`
	ProductOwner string    `json:"product_owner"`
	Members      []string  `json:"members"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasUser reports whether username holds any role in the team.
func (t *Team) HasUser(username string) bool {
	if t.ScrumMaster == username || t.ProductOwner == username {
		return true
	}

	for _, m := range t.Members {
		if m == username {
			return true
		}
	}

	return false
}

// User identifies a person by username, which is the lookup key used by
// the product directory queries.
type User struct {
	Username  string    `json:"username" validate:"required"`
	Name      string    `json:"name"`
	Email     string    `json:"email"    validate:"omitempty,email"`
	CreatedAt time.Time `json:"created_at"`
}
