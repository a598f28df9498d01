package file

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/backloghq/backlogd/pkg/models"
)

const (
	teamsDir = "teams"
	usersDir = "users"
)

// TeamRepository handles team file operations.
type TeamRepository struct {
	root string
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(root string) *TeamRepository {
	return &TeamRepository{root: root}
}

func (tr *TeamRepository) filter(keep func(*models.Team) bool) ([]*models.Team, error) {
	all, err := listEntities[models.Team](tr.root, teamsDir)
	if err != nil {
		return nil, err
	}

	teams := make([]*models.Team, 0)

	for _, team := range all {
		if keep(team) {
			teams = append(teams, team)
		}
	}

	return teams, nil
}

// GetByScrumMaster returns the teams where username is the scrum master.
func (tr *TeamRepository) GetByScrumMaster(_ context.Context, username string) ([]*models.Team, error) {
	return tr.filter(func(t *models.Team) bool { return t.ScrumMaster == username })
}

// GetByProductOwner returns the teams where username is the product owner.
func (tr *TeamRepository) GetByProductOwner(_ context.Context, username string) ([]*models.Team, error) {
	return tr.filter(func(t *models.Team) bool { return t.ProductOwner == username })
}

// GetByMember returns the teams where username is a plain member.
func (tr *TeamRepository) GetByMember(_ context.Context, username string) ([]*models.Team, error) {
	return tr.filter(func(t *models.Team) bool { return slices.Contains(t.Members, username) })
}

// Save stores a team, assigning an id when none is set.
func (tr *TeamRepository) Save(_ context.Context, team *models.Team) error {
	if team.ID == "" {
		team.ID = uuid.New().String()
	}

	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}

	return writeEntity(tr.root, teamsDir, team.ID, team)
}

// UserRepository handles user file operations, keyed by username.
type UserRepository struct {
	root string
}

// NewUserRepository creates a new user repository.
func NewUserRepository(root string) *UserRepository {
	return &UserRepository{root: root}
}

// GetByUsername retrieves a user by username.
func (ur *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return readEntity[models.User](ur.root, usersDir, username)
}

// Save stores a user.
func (ur *UserRepository) Save(_ context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	return writeEntity(ur.root, usersDir, user.Username, user)
}
