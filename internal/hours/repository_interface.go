package hours

import (
	"context"
	"time"
)

type RepositoryInterface interface {
	GetWeekly(ctx context.Context, gymID int) ([]GymHours, error)
	GetWeekday(ctx context.Context, gymID, dayOfWeek int) (*GymHours, error)
	InsertDefaults(ctx context.Context, rows []GymHours) error
	UpsertWeekday(ctx context.Context, h GymHours) (*GymHours, error)

	GetSpecialByDate(ctx context.Context, gymID int, date time.Time) (*SpecialHours, error)
	GetSpecialByID(ctx context.Context, gymID, id int) (*SpecialHours, error)
	ListSpecial(ctx context.Context, gymID int, start, end time.Time) ([]SpecialHours, error)
	CreateSpecial(ctx context.Context, s SpecialHours) (*SpecialHours, error)
	UpdateSpecial(ctx context.Context, s SpecialHours) (*SpecialHours, error)
	DeleteSpecial(ctx context.Context, gymID, id int) (bool, error)
}
