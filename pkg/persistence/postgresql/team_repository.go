package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/backloghq/backlogd/pkg/models"
)

// TeamRepository handles team database operations.
type TeamRepository struct {
	db *sql.DB
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `
	id
  , name
  , scrum_master
  , product_owner
  , members
  , created_at
`

// GetByScrumMaster returns the teams where username is the scrum master.
func (r *TeamRepository) GetByScrumMaster(ctx context.Context, username string) ([]*models.Team, error) {
	return r.query(ctx, `SELECT `+teamColumns+` FROM teams WHERE scrum_master = $1`, username)
}

// GetByProductOwner returns the teams where username is the product owner.
func (r *TeamRepository) GetByProductOwner(ctx context.Context, username string) ([]*models.Team, error) {
	return r.query(ctx, `SELECT `+teamColumns+` FROM teams WHERE product_owner = $1`, username)
}

// GetByMember returns the teams where username appears in the members array.
func (r *TeamRepository) GetByMember(ctx context.Context, username string) ([]*models.Team, error) {
	return r.query(ctx, `SELECT `+teamColumns+` FROM teams WHERE members @> to_jsonb(ARRAY[$1::text])`, username)
}

// Save upserts a team.
func (r *TeamRepository) Save(ctx context.Context, team *models.Team) error {
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}

	if team.ID == "" {
		team.ID = uuid.New().String()
	}

	membersJSON, err := json.Marshal(team.Members)
	if err != nil {
		return fmt.Errorf("failed to marshal team members: %w", err)
	}

	query := `
		INSERT INTO teams (id, name, scrum_master, product_owner, members, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			scrum_master = EXCLUDED.scrum_master,
			product_owner = EXCLUDED.product_owner,
			members = EXCLUDED.members
	`

	_, err = r.db.ExecContext(ctx, query,
		team.ID, team.Name, team.ScrumMaster, team.ProductOwner, membersJSON, team.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save team %s: %w", team.ID, err)
	}

	return nil
}

func (r *TeamRepository) query(ctx context.Context, query, username string) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)

	for rows.Next() {
		var (
			team        models.Team
			membersJSON []byte
		)

		err := rows.Scan(&team.ID, &team.Name, &team.ScrumMaster, &team.ProductOwner, &membersJSON, &team.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}

		err = json.Unmarshal(membersJSON, &team.Members)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal team members: %w", err)
		}

		teams = append(teams, &team)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// UserRepository handles user database operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUsername retrieves a user by username, (nil, nil) when absent.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := r.db.QueryRowContext(ctx,
		"SELECT username, name, email, created_at FROM users WHERE username = $1", username).
		Scan(&user.Username, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}

// Save upserts a user.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (username, name, email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email
	`

	_, err := r.db.ExecContext(ctx, query, user.Username, user.Name, user.Email, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.Username, err)
	}

	return nil
}
