package class

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"gymflow/internal/db"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const classColumns = `id, gym_id, name, description, duration, max_capacity, difficulty_level,
	category, custom_category_id, is_active, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, c Class) (*Class, error) {
	query := `
		INSERT INTO classes (gym_id, name, description, duration, max_capacity, difficulty_level, category, custom_category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + classColumns

	var out Class
	err := r.db.GetContext(ctx, &out, query,
		c.GymID, c.Name, c.Description, c.Duration, c.MaxCapacity, c.DifficultyLevel, c.Category, c.CustomCategoryID)
	if err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	return &out, nil
}

func (r *Repository) Get(ctx context.Context, gymID, id int) (*Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE gym_id = $1 AND id = $2`

	var c Class
	if err := r.db.GetContext(ctx, &c, query, gymID, id); err != nil {
		return nil, fmt.Errorf("get class %d: %w", id, err)
	}
	return &c, nil
}

func (r *Repository) List(ctx context.Context, gymID int, f ListFilter) ([]Class, error) {
	where := []string{"gym_id = $1"}
	args := []interface{}{gymID}

	if f.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	query := `SELECT ` + classColumns + ` FROM classes WHERE ` + strings.Join(where, " AND ") + ` ORDER BY name, id`
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var rows []Class
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list classes for gym %d: %w", gymID, err)
	}
	return rows, nil
}

func (r *Repository) Update(ctx context.Context, c Class) (*Class, error) {
	query := `
		UPDATE classes
		SET name = $3, description = $4, duration = $5, max_capacity = $6, difficulty_level = $7,
		    category = $8, custom_category_id = $9, is_active = $10, updated_at = NOW()
		WHERE gym_id = $1 AND id = $2
		RETURNING ` + classColumns

	var out Class
	err := r.db.GetContext(ctx, &out, query,
		c.GymID, c.ID, c.Name, c.Description, c.Duration, c.MaxCapacity, c.DifficultyLevel,
		c.Category, c.CustomCategoryID, c.IsActive)
	if err != nil {
		return nil, fmt.Errorf("update class %d: %w", c.ID, err)
	}
	return &out, nil
}

func (r *Repository) HasSessions(ctx context.Context, gymID, id int) (bool, error) {
	return db.Exists(ctx, r.db,
		`SELECT EXISTS (SELECT 1 FROM class_sessions WHERE gym_id = $1 AND class_id = $2)`, gymID, id)
}

func (r *Repository) Delete(ctx context.Context, gymID, id int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE gym_id = $1 AND id = $2`, gymID, id); err != nil {
		return fmt.Errorf("delete class %d: %w", id, err)
	}
	return nil
}

func (r *Repository) Deactivate(ctx context.Context, gymID, id int) error {
	query := `UPDATE classes SET is_active = FALSE, updated_at = NOW() WHERE gym_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, gymID, id); err != nil {
		return fmt.Errorf("deactivate class %d: %w", id, err)
	}
	return nil
}
