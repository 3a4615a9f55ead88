package schedule

import (
	"context"
	"time"
)

type RepositoryInterface interface {
	// InTx runs fn in one transaction; fn's error rolls everything back.
	InTx(ctx context.Context, fn func(tx TxRepository) error) error

	Create(ctx context.Context, s Session) (*SessionRow, error)
	CreateBatch(ctx context.Context, sessions []Session) ([]SessionRow, error)
	Get(ctx context.Context, gymID, id int) (*SessionRow, error)
	List(ctx context.Context, gymID int, f ListFilter) ([]SessionRow, error)
	CountRegistered(ctx context.Context, sessionID int) (int, error)
	RecomputeParticipants(ctx context.Context, sessionID int) (int, error)
	FindInWindow(ctx context.Context, gymID int, from, to time.Time) ([]SessionRow, error)
}

// TxRepository is the view of the store while a session row is locked.
// Update and SetStatus only touch scheduled sessions.
type TxRepository interface {
	LockSession(ctx context.Context, gymID, id int) (*SessionRow, error)
	CountRegistered(ctx context.Context, sessionID int) (int, error)
	ParticipantIDs(ctx context.Context, sessionID int) ([]int, error)
	Update(ctx context.Context, s Session) (*SessionRow, error)
	SetStatus(ctx context.Context, gymID, id int, status Status) (*SessionRow, error)
}
