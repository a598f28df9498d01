package models

import "time"

// Sprint is a time-boxed iteration of a product. Numbers are assigned
// server-side, are unique per product and never change once created.
type Sprint struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id" validate:"required"`
	Number    int       `json:"number"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Open reports whether the sprint accepts assignments at the given instant.
// A sprint with no end date stays open until one is set.
func (s *Sprint) Open(at time.Time) bool {
	if !s.StartsAt.IsZero() && at.Before(s.StartsAt) {
		return false
	}

	if s.EndsAt.IsZero() {
		return true
	}

	return at.Before(s.EndsAt)
}
