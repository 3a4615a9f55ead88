package class

import (
	"context"
	"strconv"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/cache"
	"gymflow/internal/db"
	"gymflow/internal/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

var (
	ErrClassNotFound = apperr.Scope(apperr.CodeClassNotFound, "class not found")
	ErrClassInactive = apperr.Precondition(apperr.CodeClassInactive, "class is not active")
)

type Service interface {
	Create(ctx context.Context, gymID int, req CreateClassRequest) (*Class, error)
	Get(ctx context.Context, gymID, id int) (*Class, error)
	RequireActive(ctx context.Context, gymID, id int) (*Class, error)
	List(ctx context.Context, gymID int, f ListFilter) ([]Class, error)
	Update(ctx context.Context, gymID, id int, req UpdateClassRequest) (*Class, error)
	Delete(ctx context.Context, gymID, id int) (*DeleteResult, error)
}

type service struct {
	repo  RepositoryInterface
	cache *cache.Cache
	ttl   time.Duration
}

func NewService(repo RepositoryInterface, c *cache.Cache, ttl time.Duration) Service {
	return &service{
		repo:  repo,
		cache: c,
		ttl:   ttl,
	}
}

func (s *service) Create(ctx context.Context, gymID int, req CreateClassRequest) (*Class, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := Class{
		GymID:            gymID,
		Name:             req.Name,
		Description:      req.Description,
		Duration:         req.Duration,
		MaxCapacity:      req.MaxCapacity,
		DifficultyLevel:  req.DifficultyLevel,
		Category:         req.Category,
		CustomCategoryID: req.CustomCategoryID,
	}
	if c.DifficultyLevel == "" {
		c.DifficultyLevel = DifficultyAllLevels
	}
	if c.Category == "" {
		c.Category = CategoryOther
	}

	out, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, gymID, out.ID)
	logger.Info("class created", "gym_id", gymID, "class_id", out.ID)
	return out, nil
}

func (s *service) Get(ctx context.Context, gymID, id int) (*Class, error) {
	c, err := cache.GetOrSetScoped(ctx, s.cache, cache.GymScope(gymID), cache.ClassKey(id), s.ttl, func(ctx context.Context) (*Class, error) {
		c, err := s.repo.Get(ctx, gymID, id)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, ErrClassNotFound
			}
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	// The detail key is not gym-scoped.
	if c.GymID != gymID {
		return nil, ErrClassNotFound
	}
	return c, nil
}

func (s *service) RequireActive(ctx context.Context, gymID, id int) (*Class, error) {
	c, err := s.Get(ctx, gymID, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrClassInactive.With("class_id", strconv.Itoa(id))
	}
	return c, nil
}

func (s *service) List(ctx context.Context, gymID int, f ListFilter) ([]Class, error) {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	key := cache.ClassListKey(gymID, f.Category, f.Search, f.ActiveOnly, f.Limit, f.Offset)
	return cache.GetOrSet(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]Class, error) {
		rows, err := s.repo.List(ctx, gymID, f)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []Class{}
		}
		return rows, nil
	}, cache.ClassesTracking(gymID))
}

func (s *service) Update(ctx context.Context, gymID, id int, req UpdateClassRequest) (*Class, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, gymID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	req.apply(current)
	if err := checkCategory(current.Category, current.CustomCategoryID); err != nil {
		return nil, err
	}

	out, err := s.repo.Update(ctx, *current)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, gymID, id)
	return out, nil
}

// Delete removes a class with no sessions. A class that has sessions is
// deactivated instead so their history stays intact.
func (s *service) Delete(ctx context.Context, gymID, id int) (*DeleteResult, error) {
	if _, err := s.repo.Get(ctx, gymID, id); err != nil {
		if db.IsNotFound(err) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	hasSessions, err := s.repo.HasSessions(ctx, gymID, id)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{ID: id}
	if hasSessions {
		if err := s.repo.Deactivate(ctx, gymID, id); err != nil {
			return nil, err
		}
		result.Deactivated = true
	} else {
		if err := s.repo.Delete(ctx, gymID, id); err != nil {
			return nil, err
		}
		result.Deleted = true
	}

	s.invalidate(ctx, gymID, id)
	logger.Info("class removed", "gym_id", gymID, "class_id", id, "deactivated", result.Deactivated)
	return result, nil
}

// Session views embed class data, so class writes also drop the class's
// session lists.
func (s *service) invalidate(ctx context.Context, gymID, id int) {
	s.cache.Invalidate(ctx, cache.Invalidation{
		Keys:         []string{cache.ClassKey(id)},
		TrackingSets: []string{cache.ClassesTracking(gymID), cache.ClassSessionsTracking(id)},
	})
}
