package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"gymflow/internal/db"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `s.id, s.gym_id, s.class_id, s.trainer_id, s.start_time, s.end_time, s.room, s.status,
	s.override_capacity, s.current_participants, s.is_recurring, s.recurrence_pattern, s.recurrence_group,
	s.created_at, s.updated_at, c.name AS class_name, c.max_capacity AS class_max_capacity`

const insertSession = `
	WITH s AS (
		INSERT INTO class_sessions (gym_id, class_id, trainer_id, start_time, end_time, room, status,
			override_capacity, is_recurring, recurrence_pattern, recurrence_group)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING *
	)
	SELECT ` + sessionColumns + ` FROM s JOIN classes c ON c.id = s.class_id`

func insertArgs(s Session) []interface{} {
	status := s.Status
	if status == "" {
		status = StatusScheduled
	}
	return []interface{}{s.GymID, s.ClassID, s.TrainerID, s.StartTime.UTC(), s.EndTime.UTC(), s.Room, status,
		s.OverrideCapacity, s.IsRecurring, s.RecurrencePattern, s.RecurrenceGroup}
}

func (r *Repository) Create(ctx context.Context, s Session) (*SessionRow, error) {
	var out SessionRow
	if err := r.db.GetContext(ctx, &out, insertSession, insertArgs(s)...); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &out, nil
}

// CreateBatch inserts every occurrence of a recurring batch or none of them.
func (r *Repository) CreateBatch(ctx context.Context, sessions []Session) ([]SessionRow, error) {
	out := make([]SessionRow, 0, len(sessions))
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, s := range sessions {
			var row SessionRow
			if err := tx.GetContext(ctx, &row, insertSession, insertArgs(s)...); err != nil {
				return fmt.Errorf("create session at %s: %w", s.StartTime.Format(time.RFC3339), err)
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, gymID, id int) (*SessionRow, error) {
	query := `SELECT ` + sessionColumns + `
		FROM class_sessions s JOIN classes c ON c.id = s.class_id
		WHERE s.gym_id = $1 AND s.id = $2`

	var row SessionRow
	if err := r.db.GetContext(ctx, &row, query, gymID, id); err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return &row, nil
}

func (r *Repository) List(ctx context.Context, gymID int, f ListFilter) ([]SessionRow, error) {
	where := []string{"s.gym_id = $1"}
	args := []interface{}{gymID}

	if !f.From.IsZero() {
		args = append(args, f.From.UTC())
		where = append(where, fmt.Sprintf("s.start_time >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC())
		where = append(where, fmt.Sprintf("s.start_time < $%d", len(args)))
	}
	if f.TrainerID > 0 {
		args = append(args, f.TrainerID)
		where = append(where, fmt.Sprintf("s.trainer_id = $%d", len(args)))
	}
	if f.ClassID > 0 {
		args = append(args, f.ClassID)
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("s.status = $%d", len(args)))
	}

	query := `SELECT ` + sessionColumns + `
		FROM class_sessions s JOIN classes c ON c.id = s.class_id
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY s.start_time, s.id`
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var rows []SessionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions for gym %d: %w", gymID, err)
	}
	return rows, nil
}

func (r *Repository) InTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

func (r *Repository) CountRegistered(ctx context.Context, sessionID int) (int, error) {
	return CountRegistered(ctx, r.db, sessionID)
}

func (r *Repository) RecomputeParticipants(ctx context.Context, sessionID int) (int, error) {
	return RecomputeParticipants(ctx, r.db, sessionID)
}

// FindInWindow returns the gym's scheduled sessions starting in [from, to].
func (r *Repository) FindInWindow(ctx context.Context, gymID int, from, to time.Time) ([]SessionRow, error) {
	query := `SELECT ` + sessionColumns + `
		FROM class_sessions s JOIN classes c ON c.id = s.class_id
		WHERE s.gym_id = $1 AND s.status = 'scheduled' AND s.start_time BETWEEN $2 AND $3
		ORDER BY s.start_time, s.id`

	var rows []SessionRow
	if err := r.db.SelectContext(ctx, &rows, query, gymID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("find sessions in window for gym %d: %w", gymID, err)
	}
	return rows, nil
}

// CountRegistered counts REGISTERED participations of a session. It takes
// any queryer so the participation transaction can share it.
func CountRegistered(ctx context.Context, q sqlx.QueryerContext, sessionID int) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM class_participations WHERE session_id = $1 AND status = 'registered'`
	if err := sqlx.GetContext(ctx, q, &n, query, sessionID); err != nil {
		return 0, fmt.Errorf("count registered for session %d: %w", sessionID, err)
	}
	return n, nil
}

// RecomputeParticipants rewrites current_participants from the REGISTERED
// count and returns the stored value.
func RecomputeParticipants(ctx context.Context, q sqlx.QueryerContext, sessionID int) (int, error) {
	query := `
		UPDATE class_sessions
		SET current_participants = (
			SELECT COUNT(*) FROM class_participations WHERE session_id = $1 AND status = 'registered'
		), updated_at = NOW()
		WHERE id = $1
		RETURNING current_participants`

	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, sessionID); err != nil {
		return 0, fmt.Errorf("recompute participants for session %d: %w", sessionID, err)
	}
	return n, nil
}

// LockForUpdate reads a session of the gym and holds its row lock until the
// surrounding transaction ends. Admission decisions are made under this lock.
func LockForUpdate(ctx context.Context, q sqlx.QueryerContext, gymID, id int) (*SessionRow, error) {
	query := `SELECT ` + sessionColumns + `
		FROM class_sessions s JOIN classes c ON c.id = s.class_id
		WHERE s.gym_id = $1 AND s.id = $2
		FOR UPDATE OF s`

	var row SessionRow
	if err := sqlx.GetContext(ctx, q, &row, query, gymID, id); err != nil {
		return nil, fmt.Errorf("lock session %d: %w", id, err)
	}
	return &row, nil
}

type txRepository struct {
	tx *sqlx.Tx
}

func (t *txRepository) LockSession(ctx context.Context, gymID, id int) (*SessionRow, error) {
	return LockForUpdate(ctx, t.tx, gymID, id)
}

func (t *txRepository) CountRegistered(ctx context.Context, sessionID int) (int, error) {
	return CountRegistered(ctx, t.tx, sessionID)
}

// ParticipantIDs lists every member holding a participation in the session,
// whatever its status.
func (t *txRepository) ParticipantIDs(ctx context.Context, sessionID int) ([]int, error) {
	var ids []int
	query := `SELECT user_id FROM class_participations WHERE session_id = $1 ORDER BY user_id`
	if err := t.tx.SelectContext(ctx, &ids, query, sessionID); err != nil {
		return nil, fmt.Errorf("participants of session %d: %w", sessionID, err)
	}
	return ids, nil
}

func (t *txRepository) Update(ctx context.Context, s Session) (*SessionRow, error) {
	query := `
		WITH s AS (
			UPDATE class_sessions
			SET trainer_id = $3, start_time = $4, end_time = $5, room = $6, override_capacity = $7, updated_at = NOW()
			WHERE gym_id = $1 AND id = $2 AND status = 'scheduled'
			RETURNING *
		)
		SELECT ` + sessionColumns + ` FROM s JOIN classes c ON c.id = s.class_id`

	var out SessionRow
	err := t.tx.GetContext(ctx, &out, query,
		s.GymID, s.ID, s.TrainerID, s.StartTime.UTC(), s.EndTime.UTC(), s.Room, s.OverrideCapacity)
	if err != nil {
		return nil, fmt.Errorf("update session %d: %w", s.ID, err)
	}
	return &out, nil
}

func (t *txRepository) SetStatus(ctx context.Context, gymID, id int, status Status) (*SessionRow, error) {
	query := `
		WITH s AS (
			UPDATE class_sessions SET status = $3, updated_at = NOW()
			WHERE gym_id = $1 AND id = $2 AND status = 'scheduled'
			RETURNING *
		)
		SELECT ` + sessionColumns + ` FROM s JOIN classes c ON c.id = s.class_id`

	var out SessionRow
	if err := t.tx.GetContext(ctx, &out, query, gymID, id, status); err != nil {
		return nil, fmt.Errorf("set session %d status: %w", id, err)
	}
	return &out, nil
}
