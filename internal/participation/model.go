package participation

import (
	"time"

	"gymflow/internal/apperr"
)

type Status string

const (
	StatusRegistered Status = "registered"
	StatusAttended   Status = "attended"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

type Participation struct {
	ID                 int        `db:"id" json:"id"`
	GymID              int        `db:"gym_id" json:"gym_id"`
	SessionID          int        `db:"session_id" json:"session_id"`
	UserID             int        `db:"user_id" json:"user_id"`
	Status             Status     `db:"status" json:"status"`
	RegistrationTime   time.Time  `db:"registration_time" json:"registration_time"`
	AttendanceTime     *time.Time `db:"attendance_time" json:"attendance_time"`
	CancellationTime   *time.Time `db:"cancellation_time" json:"cancellation_time"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Operation names a participation transition.
type Operation string

const (
	OpRegister Operation = "register"
	OpCancel   Operation = "cancel"
	OpAttend   Operation = "attend"
	OpNoShow   Operation = "no_show"
	// OpCheckIn takes a walk-in without a row straight to ATTENDED.
	OpCheckIn Operation = "check_in"
)

var (
	ErrAlreadyRegistered = apperr.Duplicate(apperr.CodeAlreadyRegistered, "member is already registered for this session")
	ErrNotRegistered     = apperr.Precondition(apperr.CodeNotRegistered, "member is not registered for this session")
	ErrAlreadyCheckedIn  = apperr.Duplicate(apperr.CodeAlreadyCheckedIn, "member has already checked in")
)

// transitions lists every allowed move. The empty status stands for "no row".
var transitions = map[Operation]map[Status]Status{
	OpRegister: {"": StatusRegistered, StatusCancelled: StatusRegistered},
	OpCancel:   {StatusRegistered: StatusCancelled},
	OpAttend:   {StatusRegistered: StatusAttended},
	OpNoShow:   {StatusRegistered: StatusNoShow},
	OpCheckIn:  {"": StatusAttended, StatusRegistered: StatusAttended},
}

// Next returns the status op leads to from current, or the domain error that
// rejects the move.
func Next(current Status, op Operation) (Status, error) {
	if next, ok := transitions[op][current]; ok {
		return next, nil
	}

	switch op {
	case OpRegister:
		return "", ErrAlreadyRegistered.With("status", string(current))
	case OpCheckIn:
		if current == StatusAttended {
			return "", ErrAlreadyCheckedIn
		}
	}
	return "", ErrNotRegistered.With("status", statusLabel(current))
}

func statusLabel(s Status) string {
	if s == "" {
		return "none"
	}
	return string(s)
}

// Apply moves p to next, stamping the time fields that belong to it.
func (p *Participation) Apply(next Status, now time.Time, reason string) {
	now = now.UTC()
	switch next {
	case StatusRegistered:
		p.RegistrationTime = now
		p.AttendanceTime = nil
		p.CancellationTime = nil
		p.CancellationReason = nil
	case StatusCancelled:
		p.CancellationTime = &now
		if reason != "" {
			p.CancellationReason = &reason
		} else {
			p.CancellationReason = nil
		}
	case StatusAttended:
		p.AttendanceTime = &now
	}
	p.Status = next
}

// HistoryEntry is a participation with the session it belongs to.
type HistoryEntry struct {
	Participation
	ClassID       int       `db:"class_id" json:"class_id"`
	ClassName     string    `db:"class_name" json:"class_name"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
	Room          string    `db:"room" json:"room"`
	SessionStatus string    `db:"session_status" json:"session_status"`
}

type RosterEntry struct {
	Participation
	MemberName  string `db:"member_name" json:"member_name"`
	MemberEmail string `db:"member_email" json:"member_email"`
}

type Summary struct {
	Upcoming  int `db:"upcoming" json:"upcoming_registrations"`
	Attended  int `db:"attended" json:"total_attended"`
	NoShows   int `db:"no_shows" json:"no_shows"`
	Cancelled int `db:"cancelled" json:"cancellations"`
}

type Dashboard struct {
	Summary
	LastAttendance *HistoryEntry  `json:"last_attendance"`
	NextSessions   []HistoryEntry `json:"next_sessions"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

type MemberRequest struct {
	MemberID int `json:"member_id" binding:"required,min=1"`
}

type HistoryFilter struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
