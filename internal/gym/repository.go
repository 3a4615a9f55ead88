package gym

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const memberColumns = `
	m.gym_id, m.user_id, u.name, u.email, m.role, m.is_active, u.check_in_code
`

func (r *Repository) GetGymByID(ctx context.Context, id int) (*Gym, error) {
	query := `
		SELECT id, name, location, timezone, created_at
		FROM gyms
		WHERE id = $1
	`

	var gym Gym
	if err := r.db.GetContext(ctx, &gym, query, id); err != nil {
		return nil, fmt.Errorf("get gym %d: %w", id, err)
	}

	return &gym, nil
}

func (r *Repository) GetMember(ctx context.Context, gymID, userID int) (*Member, error) {
	query := `
		SELECT` + memberColumns + `
		FROM gym_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.gym_id = $1 AND m.user_id = $2
	`

	var member Member
	if err := r.db.GetContext(ctx, &member, query, gymID, userID); err != nil {
		return nil, fmt.Errorf("get member %d in gym %d: %w", userID, gymID, err)
	}

	return &member, nil
}

func (r *Repository) GetMemberByCheckInCode(ctx context.Context, gymID int, code uuid.UUID) (*Member, error) {
	query := `
		SELECT` + memberColumns + `
		FROM gym_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.gym_id = $1 AND u.check_in_code = $2
	`

	var member Member
	if err := r.db.GetContext(ctx, &member, query, gymID, code); err != nil {
		return nil, fmt.Errorf("get member by check-in code in gym %d: %w", gymID, err)
	}

	return &member, nil
}
