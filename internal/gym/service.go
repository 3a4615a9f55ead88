package gym

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gymflow/internal/apperr"
	"gymflow/internal/db"
	"gymflow/internal/logger"
	"gymflow/internal/tz"
)

var (
	ErrGymNotFound     = apperr.Scope(apperr.CodeGymNotFound, "gym not found")
	ErrMemberNotInGym  = apperr.Forbidden(apperr.CodeMemberNotInGym, "member not in gym")
	ErrTrainerNotInGym = apperr.Validation(apperr.CodeTrainerNotInGym, "trainer is not a trainer of this gym")
)

type Service interface {
	GetGym(ctx context.Context, gymID int) (*Gym, error)
	Location(ctx context.Context, gymID int) (*time.Location, error)
	RequireMember(ctx context.Context, gymID, userID int) (*Member, error)
	RequireTrainer(ctx context.Context, gymID, userID int) (*Member, error)
	MemberByCheckInCode(ctx context.Context, gymID int, code uuid.UUID) (*Member, error)
}

type service struct {
	repo RepositoryInterface
}

func NewService(repo RepositoryInterface) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) GetGym(ctx context.Context, gymID int) (*Gym, error) {
	gym, err := s.repo.GetGymByID(ctx, gymID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	return gym, nil
}

// Location returns the gym's configured zone. An unknown zone name falls
// back to UTC so a bad row cannot take scheduling down.
func (s *service) Location(ctx context.Context, gymID int) (*time.Location, error) {
	gym, err := s.GetGym(ctx, gymID)
	if err != nil {
		return nil, err
	}
	loc, err := tz.Load(gym.Timezone)
	if err != nil {
		logger.Warn("invalid gym timezone, using UTC", "gym_id", gymID, "timezone", gym.Timezone, "error", err)
		return time.UTC, nil
	}
	return loc, nil
}

// RequireMember returns the active membership of userID in gymID.
func (s *service) RequireMember(ctx context.Context, gymID, userID int) (*Member, error) {
	member, err := s.repo.GetMember(ctx, gymID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrMemberNotInGym
		}
		return nil, err
	}
	if !member.IsActive {
		return nil, ErrMemberNotInGym
	}
	return member, nil
}

func (s *service) RequireTrainer(ctx context.Context, gymID, userID int) (*Member, error) {
	member, err := s.repo.GetMember(ctx, gymID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrTrainerNotInGym
		}
		return nil, err
	}
	if !member.IsActive || !member.IsTrainer() {
		return nil, ErrTrainerNotInGym
	}
	return member, nil
}

func (s *service) MemberByCheckInCode(ctx context.Context, gymID int, code uuid.UUID) (*Member, error) {
	member, err := s.repo.GetMemberByCheckInCode(ctx, gymID, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrMemberNotInGym
		}
		return nil, err
	}
	if !member.IsActive {
		return nil, ErrMemberNotInGym
	}
	return member, nil
}
