package hours

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gymflow/internal/tz"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const weeklyColumns = `id, gym_id, day_of_week, open_time, close_time, is_closed`

const specialColumns = `id, gym_id, date, open_time, close_time, is_closed, description, created_at`

func (r *Repository) GetWeekly(ctx context.Context, gymID int) ([]GymHours, error) {
	query := `
		SELECT ` + weeklyColumns + `
		FROM gym_hours
		WHERE gym_id = $1
		ORDER BY day_of_week
	`

	var rows []GymHours
	if err := r.db.SelectContext(ctx, &rows, query, gymID); err != nil {
		return nil, fmt.Errorf("get weekly hours for gym %d: %w", gymID, err)
	}
	return rows, nil
}

func (r *Repository) GetWeekday(ctx context.Context, gymID, dayOfWeek int) (*GymHours, error) {
	query := `
		SELECT ` + weeklyColumns + `
		FROM gym_hours
		WHERE gym_id = $1 AND day_of_week = $2
	`

	var h GymHours
	if err := r.db.GetContext(ctx, &h, query, gymID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("get hours for gym %d day %d: %w", gymID, dayOfWeek, err)
	}
	return &h, nil
}

// InsertDefaults writes template rows, leaving existing weekdays untouched.
func (r *Repository) InsertDefaults(ctx context.Context, rows []GymHours) error {
	query := `
		INSERT INTO gym_hours (gym_id, day_of_week, open_time, close_time, is_closed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (gym_id, day_of_week) DO NOTHING
	`

	for _, h := range rows {
		if _, err := r.db.ExecContext(ctx, query, h.GymID, h.DayOfWeek, h.OpenTime, h.CloseTime, h.IsClosed); err != nil {
			return fmt.Errorf("insert default hours for gym %d day %d: %w", h.GymID, h.DayOfWeek, err)
		}
	}
	return nil
}

func (r *Repository) UpsertWeekday(ctx context.Context, h GymHours) (*GymHours, error) {
	query := `
		INSERT INTO gym_hours (gym_id, day_of_week, open_time, close_time, is_closed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (gym_id, day_of_week)
		DO UPDATE SET open_time = EXCLUDED.open_time, close_time = EXCLUDED.close_time, is_closed = EXCLUDED.is_closed
		RETURNING ` + weeklyColumns

	var out GymHours
	if err := r.db.GetContext(ctx, &out, query, h.GymID, h.DayOfWeek, h.OpenTime, h.CloseTime, h.IsClosed); err != nil {
		return nil, fmt.Errorf("upsert hours for gym %d day %d: %w", h.GymID, h.DayOfWeek, err)
	}
	return &out, nil
}

func (r *Repository) GetSpecialByDate(ctx context.Context, gymID int, date time.Time) (*SpecialHours, error) {
	query := `
		SELECT ` + specialColumns + `
		FROM gym_special_hours
		WHERE gym_id = $1 AND date = $2
	`

	var s SpecialHours
	if err := r.db.GetContext(ctx, &s, query, gymID, date.Format(tz.DateLayout)); err != nil {
		return nil, fmt.Errorf("get special hours for gym %d: %w", gymID, err)
	}
	return &s, nil
}

func (r *Repository) GetSpecialByID(ctx context.Context, gymID, id int) (*SpecialHours, error) {
	query := `
		SELECT ` + specialColumns + `
		FROM gym_special_hours
		WHERE gym_id = $1 AND id = $2
	`

	var s SpecialHours
	if err := r.db.GetContext(ctx, &s, query, gymID, id); err != nil {
		return nil, fmt.Errorf("get special hours %d: %w", id, err)
	}
	return &s, nil
}

func (r *Repository) ListSpecial(ctx context.Context, gymID int, start, end time.Time) ([]SpecialHours, error) {
	query := `
		SELECT ` + specialColumns + `
		FROM gym_special_hours
		WHERE gym_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`

	var rows []SpecialHours
	if err := r.db.SelectContext(ctx, &rows, query, gymID, start.Format(tz.DateLayout), end.Format(tz.DateLayout)); err != nil {
		return nil, fmt.Errorf("list special hours for gym %d: %w", gymID, err)
	}
	return rows, nil
}

func (r *Repository) CreateSpecial(ctx context.Context, s SpecialHours) (*SpecialHours, error) {
	query := `
		INSERT INTO gym_special_hours (gym_id, date, open_time, close_time, is_closed, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + specialColumns

	var out SpecialHours
	if err := r.db.GetContext(ctx, &out, query, s.GymID, s.Date, s.OpenTime, s.CloseTime, s.IsClosed, s.Description); err != nil {
		return nil, fmt.Errorf("create special hours: %w", err)
	}
	return &out, nil
}

func (r *Repository) UpdateSpecial(ctx context.Context, s SpecialHours) (*SpecialHours, error) {
	query := `
		UPDATE gym_special_hours
		SET date = $3, open_time = $4, close_time = $5, is_closed = $6, description = $7
		WHERE gym_id = $1 AND id = $2
		RETURNING ` + specialColumns

	var out SpecialHours
	if err := r.db.GetContext(ctx, &out, query, s.GymID, s.ID, s.Date, s.OpenTime, s.CloseTime, s.IsClosed, s.Description); err != nil {
		return nil, fmt.Errorf("update special hours %d: %w", s.ID, err)
	}
	return &out, nil
}

func (r *Repository) DeleteSpecial(ctx context.Context, gymID, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gym_special_hours WHERE gym_id = $1 AND id = $2`, gymID, id)
	if err != nil {
		return false, fmt.Errorf("delete special hours %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
