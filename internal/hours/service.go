package hours

import (
	"context"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/cache"
	"gymflow/internal/db"
	"gymflow/internal/gym"
	"gymflow/internal/tz"
)

// MaxRangeDays bounds ResolveRange and special-hours listings.
const MaxRangeDays = 366

var (
	ErrSpecialNotFound = apperr.Scope(apperr.CodeSpecialNotFound, "special hours not found")
	ErrSpecialExists   = apperr.Duplicate(apperr.CodeSpecialHoursExists, "special hours already exist for this date")
	ErrInvalidRange    = apperr.Validation(apperr.CodeHoursInvalid, "invalid date range")
)

type GymLookup interface {
	GetGym(ctx context.Context, gymID int) (*gym.Gym, error)
}

type Service interface {
	Resolve(ctx context.Context, gymID int, date time.Time) (*EffectiveHours, error)
	ResolveRange(ctx context.Context, gymID int, start, end time.Time) ([]EffectiveHours, error)
	Weekly(ctx context.Context, gymID int) ([]GymHours, error)
	UpdateWeekly(ctx context.Context, gymID, dayOfWeek int, req UpdateWeeklyRequest) (*GymHours, error)
	ListSpecial(ctx context.Context, gymID int, start, end time.Time) ([]SpecialHours, error)
	CreateSpecial(ctx context.Context, gymID int, req SpecialHoursRequest) (*SpecialHours, error)
	UpdateSpecial(ctx context.Context, gymID, id int, req SpecialHoursRequest) (*SpecialHours, error)
	DeleteSpecial(ctx context.Context, gymID, id int) error
}

type service struct {
	repo  RepositoryInterface
	gyms  GymLookup
	cache *cache.Cache
	ttl   time.Duration
}

func NewService(repo RepositoryInterface, gyms GymLookup, c *cache.Cache, ttl time.Duration) Service {
	return &service{
		repo:  repo,
		gyms:  gyms,
		cache: c,
		ttl:   ttl,
	}
}

// Resolve returns the hours in effect on date. A special-hours row for the
// exact date wins; otherwise the weekly template row for the weekday is
// used, creating the gym's default template when it does not exist yet.
func (s *service) Resolve(ctx context.Context, gymID int, date time.Time) (*EffectiveHours, error) {
	date = tz.DateOf(date)
	key := cache.EffectiveHoursKey(gymID, date.Format(tz.DateLayout))

	return cache.GetOrSet(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*EffectiveHours, error) {
		return s.resolve(ctx, gymID, date)
	}, cache.HoursTracking(gymID))
}

func (s *service) resolve(ctx context.Context, gymID int, date time.Time) (*EffectiveHours, error) {
	special, err := s.repo.GetSpecialByDate(ctx, gymID, date)
	if err == nil {
		e := fromSpecial(*special)
		return &e, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}

	dow := tz.Weekday(date)
	regular, err := s.repo.GetWeekday(ctx, gymID, dow)
	if err != nil {
		if !db.IsNotFound(err) {
			return nil, err
		}
		if err := s.createDefaults(ctx, gymID, nil); err != nil {
			return nil, err
		}
		if regular, err = s.repo.GetWeekday(ctx, gymID, dow); err != nil {
			return nil, err
		}
	}

	e := fromRegular(date, *regular)
	return &e, nil
}

// ResolveRange resolves every date in [start, end] with one specials query
// and one template query.
func (s *service) ResolveRange(ctx context.Context, gymID int, start, end time.Time) ([]EffectiveHours, error) {
	start, end = tz.DateOf(start), tz.DateOf(end)
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	key := cache.HoursRangeKey(gymID, start.Format(tz.DateLayout), end.Format(tz.DateLayout))

	return cache.GetOrSet(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]EffectiveHours, error) {
		specials, err := s.repo.ListSpecial(ctx, gymID, start, end)
		if err != nil {
			return nil, err
		}
		weekly, err := s.ensureWeekly(ctx, gymID)
		if err != nil {
			return nil, err
		}

		byDate := make(map[string]SpecialHours, len(specials))
		for _, sp := range specials {
			byDate[sp.Date.String()] = sp
		}
		byDay := make(map[int]GymHours, len(weekly))
		for _, h := range weekly {
			byDay[h.DayOfWeek] = h
		}

		out := make([]EffectiveHours, 0, int(end.Sub(start).Hours()/24)+1)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if sp, ok := byDate[d.Format(tz.DateLayout)]; ok {
				out = append(out, fromSpecial(sp))
				continue
			}
			out = append(out, fromRegular(d, byDay[tz.Weekday(d)]))
		}
		return out, nil
	}, cache.HoursTracking(gymID))
}

func (s *service) Weekly(ctx context.Context, gymID int) ([]GymHours, error) {
	return cache.GetOrSet(ctx, s.cache, cache.WeeklyHoursKey(gymID), s.ttl, func(ctx context.Context) ([]GymHours, error) {
		return s.ensureWeekly(ctx, gymID)
	}, cache.HoursTracking(gymID))
}

// ensureWeekly returns all seven template rows, filling missing weekdays
// with defaults.
func (s *service) ensureWeekly(ctx context.Context, gymID int) ([]GymHours, error) {
	rows, err := s.repo.GetWeekly(ctx, gymID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 7 {
		return rows, nil
	}

	if err := s.createDefaults(ctx, gymID, rows); err != nil {
		return nil, err
	}
	return s.repo.GetWeekly(ctx, gymID)
}

func (s *service) createDefaults(ctx context.Context, gymID int, existing []GymHours) error {
	if _, err := s.gyms.GetGym(ctx, gymID); err != nil {
		return err
	}

	have := make(map[int]bool, len(existing))
	for _, h := range existing {
		have[h.DayOfWeek] = true
	}
	missing := make([]GymHours, 0, 7)
	for dow := 0; dow < 7; dow++ {
		if !have[dow] {
			missing = append(missing, DefaultHours(gymID, dow))
		}
	}
	return s.repo.InsertDefaults(ctx, missing)
}

func (s *service) UpdateWeekly(ctx context.Context, gymID, dayOfWeek int, req UpdateWeeklyRequest) (*GymHours, error) {
	h, err := NewGymHours(gymID, dayOfWeek, req.OpenTime, req.CloseTime, req.IsClosed)
	if err != nil {
		return nil, err
	}
	if _, err := s.gyms.GetGym(ctx, gymID); err != nil {
		return nil, err
	}

	out, err := s.repo.UpsertWeekday(ctx, h)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, gymID)
	return out, nil
}

func (s *service) ListSpecial(ctx context.Context, gymID int, start, end time.Time) ([]SpecialHours, error) {
	start, end = tz.DateOf(start), tz.DateOf(end)
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	return s.repo.ListSpecial(ctx, gymID, start, end)
}

func (s *service) CreateSpecial(ctx context.Context, gymID int, req SpecialHoursRequest) (*SpecialHours, error) {
	sp, err := specialFromRequest(gymID, req)
	if err != nil {
		return nil, err
	}

	out, err := s.repo.CreateSpecial(ctx, sp)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSpecialExists.With("date", sp.Date.String())
		}
		return nil, err
	}

	s.invalidate(ctx, gymID)
	return out, nil
}

func (s *service) UpdateSpecial(ctx context.Context, gymID, id int, req SpecialHoursRequest) (*SpecialHours, error) {
	sp, err := specialFromRequest(gymID, req)
	if err != nil {
		return nil, err
	}
	sp.ID = id

	out, err := s.repo.UpdateSpecial(ctx, sp)
	if err != nil {
		switch {
		case db.IsNotFound(err):
			return nil, ErrSpecialNotFound
		case db.IsUniqueViolation(err):
			return nil, ErrSpecialExists.With("date", sp.Date.String())
		}
		return nil, err
	}

	s.invalidate(ctx, gymID)
	return out, nil
}

func (s *service) DeleteSpecial(ctx context.Context, gymID, id int) error {
	deleted, err := s.repo.DeleteSpecial(ctx, gymID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSpecialNotFound
	}

	s.invalidate(ctx, gymID)
	return nil
}

// Every cached hours view of a gym is tracked under one set, so any write
// drops them all.
func (s *service) invalidate(ctx context.Context, gymID int) {
	s.cache.Invalidate(ctx, cache.Invalidation{
		Keys:         []string{cache.WeeklyHoursKey(gymID)},
		TrackingSets: []string{cache.HoursTracking(gymID)},
	})
}

func specialFromRequest(gymID int, req SpecialHoursRequest) (SpecialHours, error) {
	date, err := tz.ParseDate(req.Date)
	if err != nil {
		return SpecialHours{}, apperr.Validation(apperr.CodeHoursInvalid, "date must be YYYY-MM-DD")
	}
	return NewSpecialHours(gymID, date, req.OpenTime, req.CloseTime, req.IsClosed, req.Description)
}

func checkRange(start, end time.Time) error {
	if end.Before(start) || end.Sub(start) > MaxRangeDays*24*time.Hour {
		return ErrInvalidRange
	}
	return nil
}
