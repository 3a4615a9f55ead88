package participation

import (
	"context"
	"time"

	"gymflow/internal/schedule"
)

type RepositoryInterface interface {
	// InTx runs fn in one transaction; fn's error rolls everything back.
	InTx(ctx context.Context, fn func(tx TxRepository) error) error

	History(ctx context.Context, gymID, userID, limit, offset int) ([]HistoryEntry, error)
	Upcoming(ctx context.Context, gymID, userID int, now time.Time, limit int) ([]HistoryEntry, error)
	LastAttendance(ctx context.Context, gymID, userID int) (*HistoryEntry, error)
	Summary(ctx context.Context, gymID, userID int, now time.Time) (*Summary, error)
	Roster(ctx context.Context, gymID, sessionID int) ([]RosterEntry, error)
}

// TxRepository is the view of the store inside a participation transaction.
type TxRepository interface {
	LockSession(ctx context.Context, gymID, sessionID int) (*schedule.SessionRow, error)
	CountRegistered(ctx context.Context, sessionID int) (int, error)
	Get(ctx context.Context, sessionID, userID int) (*Participation, error)
	Insert(ctx context.Context, p Participation) (*Participation, error)
	Update(ctx context.Context, p Participation) (*Participation, error)
	RecomputeParticipants(ctx context.Context, sessionID int) (int, error)
}
