package checkin

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"gymflow/internal/apperr"
	"gymflow/internal/gym"
	"gymflow/internal/logger"
	"gymflow/internal/metrics"
	"gymflow/internal/participation"
	"gymflow/internal/schedule"
)

const DefaultWindow = 30 * time.Minute

var (
	ErrNoSessionInWindow    = apperr.Precondition(apperr.CodeNoSessionInWindow, "no session is starting around now")
	ErrSessionOutsideWindow = apperr.Precondition(apperr.CodeSessionOutsideWindow, "session is not open for check-in now")
)

type MemberLookup interface {
	RequireMember(ctx context.Context, gymID, userID int) (*gym.Member, error)
	MemberByCheckInCode(ctx context.Context, gymID int, code uuid.UUID) (*gym.Member, error)
}

type SessionFinder interface {
	Get(ctx context.Context, gymID, id int) (*schedule.SessionView, error)
	InWindow(ctx context.Context, gymID int, from, to time.Time) ([]schedule.SessionRow, error)
}

type Attendance interface {
	CheckIn(ctx context.Context, gymID, memberID, sessionID int) (*participation.Participation, error)
}

type Request struct {
	Token     string `json:"token" binding:"required"`
	SessionID *int   `json:"session_id" binding:"omitempty,min=1"`
}

type Result struct {
	Success       bool                         `json:"success"`
	Message       string                       `json:"message"`
	Code          string                       `json:"code,omitempty"`
	Session       *schedule.SessionView        `json:"session,omitempty"`
	Participation *participation.Participation `json:"participation,omitempty"`

	kind apperr.Kind
}

// Status is the HTTP status a transport should report the result with.
func (r *Result) Status() int {
	if r.Success {
		return http.StatusOK
	}
	return r.kind.HTTPStatus()
}

type TokenResponse struct {
	Token string `json:"token"`
}

type Service interface {
	ProcessCheckIn(ctx context.Context, gymID int, req Request) (*Result, error)
	Token(ctx context.Context, gymID, userID int) (*TokenResponse, error)
}

type service struct {
	codec      *Codec
	members    MemberLookup
	sessions   SessionFinder
	attendance Attendance
	window     time.Duration
	now        func() time.Time
}

func NewService(codec *Codec, members MemberLookup, sessions SessionFinder, attendance Attendance, window time.Duration) Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{
		codec:      codec,
		members:    members,
		sessions:   sessions,
		attendance: attendance,
		window:     window,
		now:        time.Now,
	}
}

// ProcessCheckIn matches a scanned token to a session starting within the
// window around now and records attendance. Domain failures come back as an
// unsuccessful Result; only infrastructure failures are returned as errors.
func (s *service) ProcessCheckIn(ctx context.Context, gymID int, req Request) (*Result, error) {
	session, p, err := s.process(ctx, gymID, req)
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
			metrics.RecordCheckIn("error")
			return nil, err
		}
		metrics.RecordCheckIn(string(appErr.Code))
		logger.Info("check-in rejected", "gym_id", gymID, "code", appErr.Code)
		return &Result{
			Message: appErr.Message,
			Code:    string(appErr.Code),
			Session: session,
			kind:    appErr.Kind,
		}, nil
	}

	metrics.RecordCheckIn("success")
	logger.Info("member checked in", "gym_id", gymID, "member_id", p.UserID, "session_id", session.ID)
	return &Result{
		Success:       true,
		Message:       "checked in to " + session.ClassName,
		Session:       session,
		Participation: p,
	}, nil
}

func (s *service) process(ctx context.Context, gymID int, req Request) (*schedule.SessionView, *participation.Participation, error) {
	code, err := s.codec.Decode(req.Token)
	if err != nil {
		return nil, nil, err
	}
	member, err := s.members.MemberByCheckInCode(ctx, gymID, code)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	from, to := now.Add(-s.window), now.Add(s.window)

	var view *schedule.SessionView
	if req.SessionID != nil {
		if view, err = s.sessions.Get(ctx, gymID, *req.SessionID); err != nil {
			return nil, nil, err
		}
		if view.Status != schedule.StatusScheduled {
			return view, nil, schedule.ErrSessionNotScheduled
		}
		if view.StartTime.Before(from) || view.StartTime.After(to) {
			return view, nil, ErrSessionOutsideWindow
		}
	} else {
		rows, err := s.sessions.InWindow(ctx, gymID, from, to)
		if err != nil {
			return nil, nil, err
		}
		best, ok := closest(rows, now)
		if !ok {
			return nil, nil, ErrNoSessionInWindow
		}
		if view, err = s.sessions.Get(ctx, gymID, best.ID); err != nil {
			return nil, nil, err
		}
	}

	p, err := s.attendance.CheckIn(ctx, gymID, member.UserID, view.ID)
	if err != nil {
		return view, nil, err
	}
	if fresh, err := s.sessions.Get(ctx, gymID, view.ID); err == nil {
		view = fresh
	}
	return view, p, nil
}

// closest picks the session whose start is nearest to now. Equal distances
// go to the earlier start, then the lower id.
func closest(rows []schedule.SessionRow, now time.Time) (schedule.SessionRow, bool) {
	if len(rows) == 0 {
		return schedule.SessionRow{}, false
	}
	sorted := append([]schedule.SessionRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := distance(sorted[i].StartTime, now), distance(sorted[j].StartTime, now)
		if di != dj {
			return di < dj
		}
		if !sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0], true
}

func distance(t, now time.Time) time.Duration {
	d := t.Sub(now)
	if d < 0 {
		return -d
	}
	return d
}

// Token returns the scannable check-in token for the calling member.
func (s *service) Token(ctx context.Context, gymID, userID int) (*TokenResponse, error) {
	member, err := s.members.RequireMember(ctx, gymID, userID)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: s.codec.Encode(member.CheckInCode)}, nil
}
