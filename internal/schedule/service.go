package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"gymflow/internal/apperr"
	"gymflow/internal/cache"
	"gymflow/internal/class"
	"gymflow/internal/db"
	"gymflow/internal/gym"
	"gymflow/internal/hours"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/tz"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

var (
	ErrSessionNotFound     = apperr.Scope(apperr.CodeSessionNotFound, "session not found")
	ErrSessionNotScheduled = apperr.Precondition(apperr.CodeSessionNotScheduled, "session is not scheduled")
)

var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

func invalid(msg string) *apperr.Error {
	return apperr.Validation(apperr.CodeSessionInvalid, msg)
}

type ClassLookup interface {
	RequireActive(ctx context.Context, gymID, id int) (*class.Class, error)
}

type GymLookup interface {
	Location(ctx context.Context, gymID int) (*time.Location, error)
	RequireTrainer(ctx context.Context, gymID, userID int) (*gym.Member, error)
}

type HoursResolver interface {
	Resolve(ctx context.Context, gymID int, date time.Time) (*hours.EffectiveHours, error)
	ResolveRange(ctx context.Context, gymID int, start, end time.Time) ([]hours.EffectiveHours, error)
}

type Service interface {
	Create(ctx context.Context, gymID int, req CreateSessionRequest) (*SessionView, error)
	CreateRecurring(ctx context.Context, gymID int, req RecurringSessionRequest) (*RecurringResult, error)
	Get(ctx context.Context, gymID, id int) (*SessionView, error)
	List(ctx context.Context, gymID int, q ListQuery) ([]SessionView, error)
	Update(ctx context.Context, gymID, id int, req UpdateSessionRequest) (*SessionView, error)
	Cancel(ctx context.Context, gymID, id int) (*SessionView, error)
	Complete(ctx context.Context, gymID, id int) (*SessionView, error)
	Availability(ctx context.Context, gymID, id int) (*Availability, error)
	LiveAvailability(ctx context.Context, gymID, id int) (*Availability, error)
	UpdateParticipantCount(ctx context.Context, gymID, id int) (int, error)
	InWindow(ctx context.Context, gymID int, from, to time.Time) ([]SessionRow, error)
}

// ListQuery is the gym-facing list filter. Dates are calendar days in the
// gym's zone, both inclusive.
type ListQuery struct {
	Start     string `form:"start"`
	End       string `form:"end"`
	TrainerID int    `form:"trainer_id" binding:"omitempty,min=1"`
	ClassID   int    `form:"class_id" binding:"omitempty,min=1"`
	Status    Status `form:"status" binding:"omitempty,oneof=scheduled completed cancelled"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

type service struct {
	repo    RepositoryInterface
	classes ClassLookup
	gyms    GymLookup
	hours   HoursResolver
	cache   *cache.Cache
	ttl     time.Duration
	now     func() time.Time
}

func NewService(repo RepositoryInterface, classes ClassLookup, gyms GymLookup, hrs HoursResolver, c *cache.Cache, ttl time.Duration) Service {
	return &service{
		repo:    repo,
		classes: classes,
		gyms:    gyms,
		hours:   hrs,
		cache:   c,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Invalidation lists what a change to session s makes stale.
func Invalidation(s Session) cache.Invalidation {
	return cache.Invalidation{
		Keys: []string{cache.SessionKey(s.ID), cache.AvailabilityKey(s.ID)},
		TrackingSets: []string{
			cache.SessionsTracking(s.GymID),
			cache.TrainerSessionsTracking(s.TrainerID),
			cache.ClassSessionsTracking(s.ClassID),
		},
	}
}

func (s *service) Create(ctx context.Context, gymID int, req CreateSessionRequest) (*SessionView, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err.Error())
	}
	if req.StartTime.IsZero() {
		return nil, invalid("start_time is required")
	}

	cls, err := s.classes.RequireActive(ctx, gymID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gyms.RequireTrainer(ctx, gymID, req.TrainerID); err != nil {
		return nil, err
	}
	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}

	start, end := s.interval(req.StartTime, req.EndTime, cls.Duration, loc)
	if err := s.checkInterval(ctx, gymID, start, end, loc); err != nil {
		return nil, err
	}

	row, err := s.repo.Create(ctx, Session{
		GymID:            gymID,
		ClassID:          cls.ID,
		TrainerID:        req.TrainerID,
		StartTime:        start,
		EndTime:          end,
		Room:             req.Room,
		Status:           StatusScheduled,
		OverrideCapacity: req.OverrideCapacity,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, Invalidation(row.Session))
	metrics.RecordSessionsCreated("single", 1)
	logger.Info("session created", "gym_id", gymID, "session_id", row.ID, "class_id", cls.ID)

	v := NewView(*row, loc)
	return &v, nil
}

// interval converts a local start and optional local end to UTC. Without an
// end the class duration is used.
func (s *service) interval(start tz.LocalTime, end *tz.LocalTime, duration int, loc *time.Location) (time.Time, time.Time) {
	startUTC := tz.ToUTC(start, loc)
	if end != nil && !end.IsZero() {
		return startUTC, tz.ToUTC(*end, loc)
	}
	return startUTC, startUTC.Add(time.Duration(duration) * time.Minute)
}

func (s *service) checkInterval(ctx context.Context, gymID int, start, end time.Time, loc *time.Location) error {
	if !end.After(start) {
		return invalid("end_time must be after start_time")
	}
	if !tz.IsFuture(start, s.now(), loc) {
		return invalid("session must start in the future")
	}

	startLocal, endLocal := tz.ToLocal(start, loc), tz.ToLocal(end, loc)
	eff, err := s.hours.Resolve(ctx, gymID, startLocal.Date())
	if err != nil {
		return err
	}
	if !eff.Covers(startLocal, endLocal) {
		return invalid("session must lie within the gym's open hours").
			With("date", startLocal.Date().Format(tz.DateLayout))
	}
	return nil
}

// CreateRecurring materialises one session per matching date. Dates on which
// the gym is closed, or whose slot falls outside open hours or in the past,
// are skipped and reported.
func (s *service) CreateRecurring(ctx context.Context, gymID int, req RecurringSessionRequest) (*RecurringResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err.Error())
	}
	startDate, err := tz.ParseDate(req.StartDate)
	if err != nil {
		return nil, invalid(err.Error())
	}
	endDate, err := tz.ParseDate(req.EndDate)
	if err != nil {
		return nil, invalid(err.Error())
	}
	if endDate.Before(startDate) {
		return nil, invalid("end_date must not be before start_date")
	}
	startClock, err := hours.ParseClock(req.StartTime)
	if err != nil {
		return nil, invalid(err.Error())
	}
	var endClock *hours.Clock
	if req.EndTime != "" {
		c, err := hours.ParseClock(req.EndTime)
		if err != nil {
			return nil, invalid(err.Error())
		}
		if !startClock.Before(c) {
			return nil, invalid("end_time must be after start_time")
		}
		endClock = &c
	}

	dates, pattern, err := occurrences(req.Pattern, req.Weekdays, startDate, endDate)
	if err != nil {
		return nil, err
	}

	cls, err := s.classes.RequireActive(ctx, gymID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gyms.RequireTrainer(ctx, gymID, req.TrainerID); err != nil {
		return nil, err
	}
	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}
	effective, err := s.hours.ResolveRange(ctx, gymID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]hours.EffectiveHours, len(effective))
	for _, e := range effective {
		byDate[e.Date.String()] = e
	}

	group := uuid.New()
	result := &RecurringResult{GroupID: group, Created: []SessionView{}, Skipped: []SkippedOccurrence{}}
	now := s.now()

	var batch []Session
	for _, d := range dates {
		day := d.Format(tz.DateLayout)
		startLocal := tz.FromWall(startClock.On(d))
		var endLocal *tz.LocalTime
		if endClock != nil {
			e := tz.FromWall(endClock.On(d))
			endLocal = &e
		}
		start, end := s.interval(startLocal, endLocal, cls.Duration, loc)

		eff, ok := byDate[day]
		switch {
		case !ok || eff.IsClosed:
			result.Skipped = append(result.Skipped, SkippedOccurrence{Date: day, Reason: "closed"})
			continue
		case !eff.Covers(tz.ToLocal(start, loc), tz.ToLocal(end, loc)):
			result.Skipped = append(result.Skipped, SkippedOccurrence{Date: day, Reason: "outside_hours"})
			continue
		case !tz.IsFuture(start, now, loc):
			result.Skipped = append(result.Skipped, SkippedOccurrence{Date: day, Reason: "in_past"})
			continue
		}

		g := group
		batch = append(batch, Session{
			GymID:             gymID,
			ClassID:           cls.ID,
			TrainerID:         req.TrainerID,
			StartTime:         start,
			EndTime:           end,
			Room:              req.Room,
			Status:            StatusScheduled,
			OverrideCapacity:  req.OverrideCapacity,
			IsRecurring:       true,
			RecurrencePattern: pattern,
			RecurrenceGroup:   &g,
		})
	}

	if len(batch) == 0 {
		return result, nil
	}

	rows, err := s.repo.CreateBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result.Created = append(result.Created, NewView(row, loc))
	}

	s.cache.Invalidate(ctx, Invalidation(rows[0].Session))
	metrics.RecordSessionsCreated("recurring", len(rows))
	logger.Info("recurring sessions created", "gym_id", gymID, "class_id", cls.ID,
		"group", group.String(), "created", len(rows), "skipped", len(result.Skipped))
	return result, nil
}

// occurrences expands a pattern into candidate dates and the stored pattern
// label. Weekly patterns need at least one weekday (Monday=0).
func occurrences(pattern string, weekdays []int, start, end time.Time) ([]time.Time, string, error) {
	want := map[int]bool{}
	label := PatternDaily
	if pattern == PatternWeekly {
		if len(weekdays) == 0 {
			return nil, "", invalid("weekly pattern needs at least one weekday")
		}
		days := append([]int(nil), weekdays...)
		sort.Ints(days)
		parts := make([]string, 0, len(days))
		for _, d := range days {
			if !want[d] {
				parts = append(parts, strconv.Itoa(d))
			}
			want[d] = true
		}
		label = PatternWeekly + ":" + strings.Join(parts, ",")
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if pattern == PatternWeekly && !want[tz.Weekday(d)] {
			continue
		}
		dates = append(dates, d)
		if len(dates) > MaxOccurrences {
			return nil, "", invalid(fmt.Sprintf("recurring batch exceeds %d occurrences", MaxOccurrences))
		}
	}
	return dates, label, nil
}

func (s *service) get(ctx context.Context, gymID, id int) (*SessionRow, error) {
	row, err := s.repo.Get(ctx, gymID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return row, nil
}

func (s *service) Get(ctx context.Context, gymID, id int) (*SessionView, error) {
	row, err := cache.GetOrSetScoped(ctx, s.cache, cache.GymScope(gymID), cache.SessionKey(id), s.ttl, func(ctx context.Context) (*SessionRow, error) {
		return s.get(ctx, gymID, id)
	})
	if err != nil {
		return nil, err
	}
	// The detail key is not gym-scoped.
	if row.GymID != gymID {
		return nil, ErrSessionNotFound
	}

	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}
	v := NewView(*row, loc)
	return &v, nil
}

func (s *service) List(ctx context.Context, gymID int, q ListQuery) ([]SessionView, error) {
	if err := validate.Struct(q); err != nil {
		return nil, invalid(err.Error())
	}
	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}

	f := ListFilter{TrainerID: q.TrainerID, ClassID: q.ClassID, Status: q.Status, Limit: q.Limit, Offset: q.Offset}
	if q.Start != "" {
		d, err := tz.ParseDate(q.Start)
		if err != nil {
			return nil, invalid(err.Error())
		}
		f.From = tz.ToUTC(tz.FromWall(d), loc)
	}
	if q.End != "" {
		d, err := tz.ParseDate(q.End)
		if err != nil {
			return nil, invalid(err.Error())
		}
		f.To = tz.ToUTC(tz.FromWall(d.AddDate(0, 0, 1)), loc)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return nil, invalid("end must not be before start")
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	tracking := []string{cache.SessionsTracking(gymID)}
	if f.TrainerID > 0 {
		tracking = append(tracking, cache.TrainerSessionsTracking(f.TrainerID))
	}
	if f.ClassID > 0 {
		tracking = append(tracking, cache.ClassSessionsTracking(f.ClassID))
	}

	key := cache.SessionListKey(gymID, q.Start, q.End, f.TrainerID, f.ClassID, f.Status, f.Limit, f.Offset)
	rows, err := cache.GetOrSet(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]SessionRow, error) {
		rows, err := s.repo.List(ctx, gymID, f)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []SessionRow{}
		}
		return rows, nil
	}, tracking...)
	if err != nil {
		return nil, err
	}

	out := make([]SessionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewView(r, loc))
	}
	return out, nil
}

// Update changes trainer, times, room or capacity override of a scheduled
// session. The override may not drop below the REGISTERED count, which is
// read under the session's row lock so no admission can slip in between.
func (s *service) Update(ctx context.Context, gymID, id int, req UpdateSessionRequest) (*SessionView, error) {
	if err := validate.Struct(req); err != nil {
		return nil, invalid(err.Error())
	}
	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}

	var current, row *SessionRow
	var members []int
	err = s.repo.InTx(ctx, func(tx TxRepository) error {
		current, err = s.lock(ctx, tx, gymID, id)
		if err != nil {
			return err
		}

		next := current.Session
		if req.TrainerID != nil && *req.TrainerID != next.TrainerID {
			if _, err := s.gyms.RequireTrainer(ctx, gymID, *req.TrainerID); err != nil {
				return err
			}
			next.TrainerID = *req.TrainerID
		}
		if req.Room != nil {
			next.Room = *req.Room
		}

		if req.StartTime != nil || req.EndTime != nil {
			length := next.EndTime.Sub(next.StartTime)
			if req.StartTime != nil {
				next.StartTime = tz.ToUTC(*req.StartTime, loc)
				next.EndTime = next.StartTime.Add(length)
			}
			if req.EndTime != nil {
				next.EndTime = tz.ToUTC(*req.EndTime, loc)
			}
			if err := s.checkInterval(ctx, gymID, next.StartTime, next.EndTime, loc); err != nil {
				return err
			}
		}

		switch {
		case req.ClearOverride:
			next.OverrideCapacity = nil
		case req.OverrideCapacity != nil:
			next.OverrideCapacity = req.OverrideCapacity
		}
		if req.ClearOverride || req.OverrideCapacity != nil {
			capacity := current.ClassMaxCapacity
			if next.OverrideCapacity != nil {
				capacity = *next.OverrideCapacity
			}
			registered, err := tx.CountRegistered(ctx, id)
			if err != nil {
				return err
			}
			if capacity < registered {
				return invalid("capacity cannot drop below the registered count").
					With("registered", strconv.Itoa(registered))
			}
		}

		if members, err = tx.ParticipantIDs(ctx, id); err != nil {
			return err
		}
		row, err = tx.Update(ctx, next)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrSessionNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateChange(ctx, current.Session, row.Session, members)

	v := NewView(*row, loc)
	return &v, nil
}

func (s *service) Cancel(ctx context.Context, gymID, id int) (*SessionView, error) {
	return s.transition(ctx, gymID, id, StatusCancelled)
}

func (s *service) Complete(ctx context.Context, gymID, id int) (*SessionView, error) {
	return s.transition(ctx, gymID, id, StatusCompleted)
}

func (s *service) transition(ctx context.Context, gymID, id int, to Status) (*SessionView, error) {
	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}

	var current, row *SessionRow
	var members []int
	err = s.repo.InTx(ctx, func(tx TxRepository) error {
		current, err = s.lock(ctx, tx, gymID, id)
		if err != nil {
			return err
		}
		if members, err = tx.ParticipantIDs(ctx, id); err != nil {
			return err
		}
		row, err = tx.SetStatus(ctx, gymID, id, to)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrSessionNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateChange(ctx, current.Session, row.Session, members)
	logger.Info("session status changed", "gym_id", gymID, "session_id", id, "status", string(to))

	v := NewView(*row, loc)
	return &v, nil
}

// lock reads the session under its row lock and requires it to be scheduled.
func (s *service) lock(ctx context.Context, tx TxRepository, gymID, id int) (*SessionRow, error) {
	current, err := tx.LockSession(ctx, gymID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if current.Status != StatusScheduled {
		return nil, ErrSessionNotScheduled.With("status", string(current.Status))
	}
	return current, nil
}

// invalidateChange drops the session's scopes, the previous trainer's lists
// and the member views of everyone holding a participation in the session.
func (s *service) invalidateChange(ctx context.Context, before, after Session, members []int) {
	inv := Invalidation(after)
	if before.TrainerID != after.TrainerID {
		inv = inv.Merge(cache.Invalidation{TrackingSets: []string{cache.TrainerSessionsTracking(before.TrainerID)}})
	}
	for _, m := range members {
		inv = inv.Merge(cache.MemberViews(after.GymID, m))
	}
	s.cache.Invalidate(ctx, inv)
}

// Availability is the cached read path. Capacity decisions use LiveAvailability.
func (s *service) Availability(ctx context.Context, gymID, id int) (*Availability, error) {
	a, err := cache.GetOrSetScoped(ctx, s.cache, cache.GymScope(gymID), cache.AvailabilityKey(id), s.ttl, func(ctx context.Context) (*Availability, error) {
		return s.LiveAvailability(ctx, gymID, id)
	})
	if err != nil {
		return nil, err
	}
	if a.Session.GymID != gymID {
		return nil, ErrSessionNotFound
	}
	return a, nil
}

// LiveAvailability counts REGISTERED participations instead of trusting the
// denormalised counter.
func (s *service) LiveAvailability(ctx context.Context, gymID, id int) (*Availability, error) {
	row, err := s.get(ctx, gymID, id)
	if err != nil {
		return nil, err
	}
	registered, err := s.repo.CountRegistered(ctx, id)
	if err != nil {
		return nil, err
	}
	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}

	capacity := row.Capacity()
	available, full := ComputeAvailability(capacity, registered)
	return &Availability{
		Session:         NewView(*row, loc),
		ClassID:         row.ClassID,
		ClassName:       row.ClassName,
		Capacity:        capacity,
		RegisteredCount: registered,
		AvailableSpots:  available,
		IsFull:          full,
	}, nil
}

func (s *service) UpdateParticipantCount(ctx context.Context, gymID, id int) (int, error) {
	row, err := s.get(ctx, gymID, id)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.RecomputeParticipants(ctx, id)
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(ctx, Invalidation(row.Session))
	return n, nil
}

func (s *service) InWindow(ctx context.Context, gymID int, from, to time.Time) ([]SessionRow, error) {
	return s.repo.FindInWindow(ctx, gymID, from, to)
}
