package participation

import (
	"context"
	"strconv"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/cache"
	"gymflow/internal/db"
	"gymflow/internal/gym"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/notify"
	"gymflow/internal/schedule"
	"gymflow/internal/tz"
)

const (
	defaultLimit   = 50
	maxLimit       = 200
	dashboardNextN = 5
)

var (
	ErrSessionFull    = apperr.Capacity(apperr.CodeSessionFull, "session is full")
	ErrSessionStarted = apperr.Precondition(apperr.CodeSessionStarted, "session has already started")
)

type MemberLookup interface {
	GetGym(ctx context.Context, gymID int) (*gym.Gym, error)
	Location(ctx context.Context, gymID int) (*time.Location, error)
	RequireMember(ctx context.Context, gymID, userID int) (*gym.Member, error)
}

type SessionLookup interface {
	Get(ctx context.Context, gymID, id int) (*schedule.SessionView, error)
}

type Notifier interface {
	SendRegistration(ctx context.Context, n notify.SessionNotice) error
	SendCancellation(ctx context.Context, n notify.SessionNotice) error
}

type Service interface {
	Register(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error)
	Cancel(ctx context.Context, gymID, memberID, sessionID int, reason string) (*Participation, error)
	MarkAttendance(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error)
	MarkNoShow(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error)
	CheckIn(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error)

	History(ctx context.Context, gymID, memberID int, f HistoryFilter) ([]HistoryEntry, error)
	Roster(ctx context.Context, gymID, sessionID int) ([]RosterEntry, error)
	LastAttendance(ctx context.Context, gymID, memberID int) (*HistoryEntry, error)
	Dashboard(ctx context.Context, gymID, memberID int) (*Dashboard, error)
}

type service struct {
	repo     RepositoryInterface
	members  MemberLookup
	sessions SessionLookup
	notifier Notifier
	cache    *cache.Cache
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo RepositoryInterface, members MemberLookup, sessions SessionLookup, notifier Notifier, c *cache.Cache, ttl time.Duration) Service {
	return &service{
		repo:     repo,
		members:  members,
		sessions: sessions,
		notifier: notifier,
		cache:    c,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *service) Register(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error) {
	return s.transition(ctx, gymID, memberID, sessionID, OpRegister, "")
}

func (s *service) Cancel(ctx context.Context, gymID, memberID, sessionID int, reason string) (*Participation, error) {
	if len(reason) > 255 {
		return nil, apperr.Validation(apperr.CodeSessionInvalid, "cancellation reason is too long")
	}
	return s.transition(ctx, gymID, memberID, sessionID, OpCancel, reason)
}

func (s *service) MarkAttendance(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error) {
	return s.transition(ctx, gymID, memberID, sessionID, OpAttend, "")
}

func (s *service) MarkNoShow(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error) {
	return s.transition(ctx, gymID, memberID, sessionID, OpNoShow, "")
}

// CheckIn records attendance from the front desk. A member without a row is
// taken straight to ATTENDED.
func (s *service) CheckIn(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error) {
	return s.transition(ctx, gymID, memberID, sessionID, OpCheckIn, "")
}

// transition runs one state change under the session row lock: admission
// checks, the participation write and the counter recompute commit together.
func (s *service) transition(ctx context.Context, gymID, memberID, sessionID int, op Operation, reason string) (*Participation, error) {
	member, err := s.members.RequireMember(ctx, gymID, memberID)
	if err != nil {
		metrics.RecordTransition(string(op), string(apperr.CodeOf(err)))
		return nil, err
	}
	loc, err := s.members.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var (
		out     *Participation
		session *schedule.SessionRow
	)
	err = s.repo.InTx(ctx, func(tx TxRepository) error {
		row, err := tx.LockSession(ctx, gymID, sessionID)
		if err != nil {
			if db.IsNotFound(err) {
				return schedule.ErrSessionNotFound
			}
			return err
		}
		session = row

		switch op {
		case OpRegister:
			if err := checkOpen(row, now, loc); err != nil {
				return err
			}
		case OpCheckIn:
			if row.Status != schedule.StatusScheduled {
				return schedule.ErrSessionNotScheduled.With("status", string(row.Status))
			}
		}

		existing, err := tx.Get(ctx, sessionID, memberID)
		if err != nil && !db.IsNotFound(err) {
			return err
		}

		var current Status
		if existing != nil {
			current = existing.Status
		}
		next, err := Next(current, op)
		if err != nil {
			return err
		}

		if op == OpRegister {
			registered, err := tx.CountRegistered(ctx, sessionID)
			if err != nil {
				return err
			}
			if _, full := schedule.ComputeAvailability(row.Capacity(), registered); full {
				return ErrSessionFull.With("capacity", strconv.Itoa(row.Capacity()))
			}
		}

		if existing == nil {
			p := Participation{GymID: gymID, SessionID: sessionID, UserID: memberID, RegistrationTime: now.UTC()}
			p.Apply(next, now, reason)
			out, err = tx.Insert(ctx, p)
			if err != nil {
				if db.IsUniqueViolation(err) {
					return ErrAlreadyRegistered
				}
				return err
			}
		} else {
			p := *existing
			p.Apply(next, now, reason)
			if out, err = tx.Update(ctx, p); err != nil {
				return err
			}
		}

		_, err = tx.RecomputeParticipants(ctx, sessionID)
		return err
	})
	if err != nil {
		metrics.RecordTransition(string(op), string(apperr.CodeOf(err)))
		return nil, err
	}
	metrics.RecordTransition(string(op), "ok")

	s.invalidate(ctx, session.Session, memberID)
	logger.Info("participation changed", "gym_id", gymID, "session_id", sessionID,
		"member_id", memberID, "operation", string(op), "status", string(out.Status))

	if s.notifier != nil {
		switch op {
		case OpRegister:
			s.sendNotice(ctx, member, session, loc, "", s.notifier.SendRegistration)
		case OpCancel:
			s.sendNotice(ctx, member, session, loc, reason, s.notifier.SendCancellation)
		}
	}
	return out, nil
}

// checkOpen rejects sessions that are not bookable any more. "Started" is
// judged against the gym's local clock.
func checkOpen(row *schedule.SessionRow, now time.Time, loc *time.Location) error {
	if row.Status != schedule.StatusScheduled {
		return schedule.ErrSessionNotScheduled.With("status", string(row.Status))
	}
	if !tz.IsFuture(row.StartTime, now, loc) {
		return ErrSessionStarted
	}
	return nil
}

func (s *service) invalidate(ctx context.Context, session schedule.Session, memberID int) {
	s.cache.Invalidate(ctx, schedule.Invalidation(session).Merge(cache.MemberViews(session.GymID, memberID)))
}

func (s *service) sendNotice(ctx context.Context, member *gym.Member, session *schedule.SessionRow, loc *time.Location, reason string,
	send func(context.Context, notify.SessionNotice) error) {
	n := notify.SessionNotice{
		To:        member.Email,
		Name:      member.Name,
		ClassName: session.ClassName,
		Start:     tz.ToLocal(session.StartTime, loc),
		Room:      session.Room,
		Reason:    reason,
	}
	if g, err := s.members.GetGym(ctx, session.GymID); err == nil {
		n.GymName = g.Name
	}
	if err := send(ctx, n); err != nil {
		logger.Warn("notice not queued", "gym_id", session.GymID, "session_id", session.ID, "error", err)
	}
}

func (s *service) History(ctx context.Context, gymID, memberID int, f HistoryFilter) ([]HistoryEntry, error) {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	key := cache.HistoryKey(gymID, memberID, f.Limit, f.Offset)
	return cache.GetOrSet(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]HistoryEntry, error) {
		rows, err := s.repo.History(ctx, gymID, memberID, f.Limit, f.Offset)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []HistoryEntry{}
		}
		return rows, nil
	}, cache.MemberTracking(gymID, memberID))
}

func (s *service) Roster(ctx context.Context, gymID, sessionID int) ([]RosterEntry, error) {
	if _, err := s.sessions.Get(ctx, gymID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.Roster(ctx, gymID, sessionID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []RosterEntry{}
	}
	return rows, nil
}

// LastAttendance returns nil without error when the member never attended.
func (s *service) LastAttendance(ctx context.Context, gymID, memberID int) (*HistoryEntry, error) {
	return cache.GetOrSet(ctx, s.cache, cache.LastAttendanceKey(gymID, memberID), s.ttl, func(ctx context.Context) (*HistoryEntry, error) {
		return s.lastAttendance(ctx, gymID, memberID)
	})
}

func (s *service) lastAttendance(ctx context.Context, gymID, memberID int) (*HistoryEntry, error) {
	last, err := s.repo.LastAttendance(ctx, gymID, memberID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return last, nil
}

func (s *service) Dashboard(ctx context.Context, gymID, memberID int) (*Dashboard, error) {
	return cache.GetOrSet(ctx, s.cache, cache.DashboardKey(gymID, memberID), s.ttl, func(ctx context.Context) (*Dashboard, error) {
		now := s.now()
		summary, err := s.repo.Summary(ctx, gymID, memberID, now)
		if err != nil {
			return nil, err
		}
		last, err := s.lastAttendance(ctx, gymID, memberID)
		if err != nil {
			return nil, err
		}
		next, err := s.repo.Upcoming(ctx, gymID, memberID, now, dashboardNextN)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []HistoryEntry{}
		}
		return &Dashboard{Summary: *summary, LastAttendance: last, NextSessions: next}, nil
	})
}
