package schedule

import (
	"time"

	"github.com/google/uuid"

	"gymflow/internal/tz"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

const (
	PatternDaily  = "daily"
	PatternWeekly = "weekly"

	// MaxOccurrences bounds one recurring batch.
	MaxOccurrences = 100
)

type Session struct {
	ID                  int        `db:"id" json:"id"`
	GymID               int        `db:"gym_id" json:"gym_id"`
	ClassID             int        `db:"class_id" json:"class_id"`
	TrainerID           int        `db:"trainer_id" json:"trainer_id"`
	StartTime           time.Time  `db:"start_time" json:"start_time"`
	EndTime             time.Time  `db:"end_time" json:"end_time"`
	Room                string     `db:"room" json:"room"`
	Status              Status     `db:"status" json:"status"`
	OverrideCapacity    *int       `db:"override_capacity" json:"override_capacity"`
	CurrentParticipants int        `db:"current_participants" json:"current_participants"`
	IsRecurring         bool       `db:"is_recurring" json:"is_recurring"`
	RecurrencePattern   string     `db:"recurrence_pattern" json:"recurrence_pattern,omitempty"`
	RecurrenceGroup     *uuid.UUID `db:"recurrence_group" json:"recurrence_group,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// SessionRow is a session joined with the class fields capacity depends on.
type SessionRow struct {
	Session
	ClassName        string `db:"class_name" json:"class_name"`
	ClassMaxCapacity int    `db:"class_max_capacity" json:"class_max_capacity"`
}

// Capacity is the override when set, else the class maximum.
func (r *SessionRow) Capacity() int {
	if r.OverrideCapacity != nil {
		return *r.OverrideCapacity
	}
	return r.ClassMaxCapacity
}

// SessionView is the gym-facing shape: UTC instants plus the same instants
// as gym-local wall clock.
type SessionView struct {
	SessionRow
	Capacity   int          `json:"capacity"`
	StartLocal tz.LocalTime `json:"start_local"`
	EndLocal   tz.LocalTime `json:"end_local"`
}

func NewView(r SessionRow, loc *time.Location) SessionView {
	return SessionView{
		SessionRow: r,
		Capacity:   r.Capacity(),
		StartLocal: tz.ToLocal(r.StartTime, loc),
		EndLocal:   tz.ToLocal(r.EndTime, loc),
	}
}

type Availability struct {
	Session         SessionView `json:"session"`
	ClassID         int         `json:"class_id"`
	ClassName       string      `json:"class_name"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registered_count"`
	AvailableSpots  int         `json:"available_spots"`
	IsFull          bool        `json:"is_full"`
}

// ComputeAvailability derives the seat figures from a fresh REGISTERED count.
func ComputeAvailability(capacity, registered int) (available int, full bool) {
	available = capacity - registered
	return available, available <= 0
}

type CreateSessionRequest struct {
	ClassID          int           `json:"class_id" binding:"required,min=1"`
	TrainerID        int           `json:"trainer_id" binding:"required,min=1"`
	StartTime        tz.LocalTime  `json:"start_time"`
	EndTime          *tz.LocalTime `json:"end_time"`
	Room             string        `json:"room" binding:"max=100"`
	OverrideCapacity *int          `json:"override_capacity" binding:"omitempty,min=1"`
}

type RecurringSessionRequest struct {
	ClassID          int    `json:"class_id" binding:"required,min=1"`
	TrainerID        int    `json:"trainer_id" binding:"required,min=1"`
	Pattern          string `json:"pattern" binding:"required,oneof=daily weekly"`
	Weekdays         []int  `json:"weekdays" binding:"omitempty,dive,min=0,max=6"`
	StartDate        string `json:"start_date" binding:"required"`
	EndDate          string `json:"end_date" binding:"required"`
	StartTime        string `json:"start_time" binding:"required"`
	EndTime          string `json:"end_time"`
	Room             string `json:"room" binding:"max=100"`
	OverrideCapacity *int   `json:"override_capacity" binding:"omitempty,min=1"`
}

type SkippedOccurrence struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type RecurringResult struct {
	GroupID uuid.UUID           `json:"group_id"`
	Created []SessionView       `json:"created"`
	Skipped []SkippedOccurrence `json:"skipped"`
}

type UpdateSessionRequest struct {
	TrainerID        *int          `json:"trainer_id" binding:"omitempty,min=1"`
	StartTime        *tz.LocalTime `json:"start_time"`
	EndTime          *tz.LocalTime `json:"end_time"`
	Room             *string       `json:"room" binding:"omitempty,max=100"`
	OverrideCapacity *int          `json:"override_capacity" binding:"omitempty,min=1"`
	ClearOverride    bool          `json:"clear_override"`
}

type ListFilter struct {
	From      time.Time
	To        time.Time
	TrainerID int
	ClassID   int
	Status    Status
	Limit     int
	Offset    int
}
