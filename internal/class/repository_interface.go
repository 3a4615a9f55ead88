package class

import "context"

type RepositoryInterface interface {
	Create(ctx context.Context, c Class) (*Class, error)
	Get(ctx context.Context, gymID, id int) (*Class, error)
	List(ctx context.Context, gymID int, f ListFilter) ([]Class, error)
	Update(ctx context.Context, c Class) (*Class, error)
	HasSessions(ctx context.Context, gymID, id int) (bool, error)
	Delete(ctx context.Context, gymID, id int) error
	Deactivate(ctx context.Context, gymID, id int) error
}
