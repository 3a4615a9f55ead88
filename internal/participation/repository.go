package participation

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gymflow/internal/db"
	"gymflow/internal/schedule"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const participationColumns = `p.id, p.gym_id, p.session_id, p.user_id, p.status, p.registration_time,
	p.attendance_time, p.cancellation_time, p.cancellation_reason, p.updated_at`

const historyColumns = participationColumns + `, s.class_id, c.name AS class_name, s.start_time, s.end_time,
	s.room, s.status AS session_status`

const historyFrom = `
	FROM class_participations p
	JOIN class_sessions s ON s.id = p.session_id
	JOIN classes c ON c.id = s.class_id`

func (r *Repository) InTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

func (r *Repository) History(ctx context.Context, gymID, userID, limit, offset int) ([]HistoryEntry, error) {
	query := `SELECT ` + historyColumns + historyFrom + `
		WHERE p.gym_id = $1 AND p.user_id = $2
		ORDER BY s.start_time DESC, p.id DESC
		LIMIT $3 OFFSET $4`

	var rows []HistoryEntry
	if err := r.db.SelectContext(ctx, &rows, query, gymID, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("participation history for user %d: %w", userID, err)
	}
	return rows, nil
}

func (r *Repository) Upcoming(ctx context.Context, gymID, userID int, now time.Time, limit int) ([]HistoryEntry, error) {
	query := `SELECT ` + historyColumns + historyFrom + `
		WHERE p.gym_id = $1 AND p.user_id = $2 AND p.status = 'registered' AND s.start_time > $3
		ORDER BY s.start_time, p.id
		LIMIT $4`

	var rows []HistoryEntry
	if err := r.db.SelectContext(ctx, &rows, query, gymID, userID, now.UTC(), limit); err != nil {
		return nil, fmt.Errorf("upcoming sessions for user %d: %w", userID, err)
	}
	return rows, nil
}

func (r *Repository) LastAttendance(ctx context.Context, gymID, userID int) (*HistoryEntry, error) {
	query := `SELECT ` + historyColumns + historyFrom + `
		WHERE p.gym_id = $1 AND p.user_id = $2 AND p.status = 'attended'
		ORDER BY p.attendance_time DESC NULLS LAST, p.id DESC
		LIMIT 1`

	var row HistoryEntry
	if err := r.db.GetContext(ctx, &row, query, gymID, userID); err != nil {
		return nil, fmt.Errorf("last attendance for user %d: %w", userID, err)
	}
	return &row, nil
}

func (r *Repository) Summary(ctx context.Context, gymID, userID int, now time.Time) (*Summary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE p.status = 'registered' AND s.start_time > $3) AS upcoming,
			COUNT(*) FILTER (WHERE p.status = 'attended') AS attended,
			COUNT(*) FILTER (WHERE p.status = 'no_show') AS no_shows,
			COUNT(*) FILTER (WHERE p.status = 'cancelled') AS cancelled
		FROM class_participations p
		JOIN class_sessions s ON s.id = p.session_id
		WHERE p.gym_id = $1 AND p.user_id = $2`

	var out Summary
	if err := r.db.GetContext(ctx, &out, query, gymID, userID, now.UTC()); err != nil {
		return nil, fmt.Errorf("participation summary for user %d: %w", userID, err)
	}
	return &out, nil
}

func (r *Repository) Roster(ctx context.Context, gymID, sessionID int) ([]RosterEntry, error) {
	query := `SELECT ` + participationColumns + `, u.name AS member_name, u.email AS member_email
		FROM class_participations p
		JOIN users u ON u.id = p.user_id
		WHERE p.gym_id = $1 AND p.session_id = $2
		ORDER BY p.registration_time, p.id`

	var rows []RosterEntry
	if err := r.db.SelectContext(ctx, &rows, query, gymID, sessionID); err != nil {
		return nil, fmt.Errorf("roster for session %d: %w", sessionID, err)
	}
	return rows, nil
}

type txRepository struct {
	tx *sqlx.Tx
}

func (t *txRepository) LockSession(ctx context.Context, gymID, sessionID int) (*schedule.SessionRow, error) {
	return schedule.LockForUpdate(ctx, t.tx, gymID, sessionID)
}

func (t *txRepository) CountRegistered(ctx context.Context, sessionID int) (int, error) {
	return schedule.CountRegistered(ctx, t.tx, sessionID)
}

func (t *txRepository) RecomputeParticipants(ctx context.Context, sessionID int) (int, error) {
	return schedule.RecomputeParticipants(ctx, t.tx, sessionID)
}

func (t *txRepository) Get(ctx context.Context, sessionID, userID int) (*Participation, error) {
	query := `SELECT ` + participationColumns + `
		FROM class_participations p
		WHERE p.session_id = $1 AND p.user_id = $2`

	var p Participation
	if err := t.tx.GetContext(ctx, &p, query, sessionID, userID); err != nil {
		return nil, fmt.Errorf("get participation of user %d in session %d: %w", userID, sessionID, err)
	}
	return &p, nil
}

func (t *txRepository) Insert(ctx context.Context, p Participation) (*Participation, error) {
	query := `
		INSERT INTO class_participations AS p (gym_id, session_id, user_id, status, registration_time, attendance_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + participationColumns

	var out Participation
	err := t.tx.GetContext(ctx, &out, query, p.GymID, p.SessionID, p.UserID, p.Status, p.RegistrationTime, p.AttendanceTime)
	if err != nil {
		return nil, fmt.Errorf("insert participation: %w", err)
	}
	return &out, nil
}

func (t *txRepository) Update(ctx context.Context, p Participation) (*Participation, error) {
	query := `
		UPDATE class_participations AS p
		SET status = $2, registration_time = $3, attendance_time = $4, cancellation_time = $5,
		    cancellation_reason = $6, updated_at = NOW()
		WHERE p.id = $1
		RETURNING ` + participationColumns

	var out Participation
	err := t.tx.GetContext(ctx, &out, query,
		p.ID, p.Status, p.RegistrationTime, p.AttendanceTime, p.CancellationTime, p.CancellationReason)
	if err != nil {
		return nil, fmt.Errorf("update participation %d: %w", p.ID, err)
	}
	return &out, nil
}
