package gym

import (
	"context"

	"github.com/google/uuid"
)

type RepositoryInterface interface {
	GetGymByID(ctx context.Context, id int) (*Gym, error)
	GetMember(ctx context.Context, gymID, userID int) (*Member, error)
	GetMemberByCheckInCode(ctx context.Context, gymID int, code uuid.UUID) (*Member, error)
}
