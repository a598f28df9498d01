package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/backloghq/backlogd/pkg/models"
	"github.com/backloghq/backlogd/pkg/persistence"
)

// Directory answers which products a user works on, through the teams the
// user belongs to in any role.
type Directory struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewDirectory creates a new directory service.
func NewDirectory(p persistence.Persistence, logger *slog.Logger) *Directory {
	return &Directory{
		persistence: p,
		logger:      logger.With("module", "directory_service"),
	}
}

// FindProductsForUser returns the de-duplicated products owned by every team
// where the user is scrum master, product owner, or member. Collaborator
// errors propagate; a failed role query never degrades to a partial answer.
func (d *Directory) FindProductsForUser(ctx context.Context, username string) ([]*models.Product, error) {
	user, err := d.persistence.UserRepository().GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	teamIDs, err := d.teamIDsForUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if len(teamIDs) == 0 {
		return []*models.Product{}, nil
	}

	products, err := d.persistence.ProductRepository().GetByTeams(ctx, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products for user %s: %w", username, err)
	}

	seen := make(map[string]bool, len(products))
	unique := make([]*models.Product, 0, len(products))

	for _, product := range products {
		if seen[product.ID] {
			continue
		}

		seen[product.ID] = true
		unique = append(unique, product)
	}

	return unique, nil
}

func (d *Directory) teamIDsForUser(ctx context.Context, username string) ([]string, error) {
	queries := []func(context.Context, string) ([]*models.Team, error){
		d.persistence.TeamRepository().GetByScrumMaster,
		d.persistence.TeamRepository().GetByProductOwner,
		d.persistence.TeamRepository().GetByMember,
	}

	seen := make(map[string]bool)
	ids := make([]string, 0)

	for _, query := range queries {
		teams, err := query(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("failed to load teams for user %s: %w", username, err)
		}

		for _, team := range teams {
			if seen[team.ID] {
				continue
			}

			seen[team.ID] = true
			ids = append(ids, team.ID)
		}
	}

	return ids, nil
}
