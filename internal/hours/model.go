package hours

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gymflow/internal/apperr"
	"gymflow/internal/tz"
)

type Source string

const (
	SourceSpecial Source = "special"
	SourceRegular Source = "regular"
)

const sunday = 6

var (
	DefaultOpen  = Clock{Hour: 9}
	DefaultClose = Clock{Hour: 21}
)

// GymHours is the weekly template row for one weekday (Monday=0).
type GymHours struct {
	ID        int    `db:"id" json:"id"`
	GymID     int    `db:"gym_id" json:"gym_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	OpenTime  *Clock `db:"open_time" json:"open_time"`
	CloseTime *Clock `db:"close_time" json:"close_time"`
	IsClosed  bool   `db:"is_closed" json:"is_closed"`
}

type SpecialHours struct {
	ID          int       `db:"id" json:"id"`
	GymID       int       `db:"gym_id" json:"gym_id"`
	Date        Date      `db:"date" json:"date"`
	OpenTime    *Clock    `db:"open_time" json:"open_time"`
	CloseTime   *Clock    `db:"close_time" json:"close_time"`
	IsClosed    bool      `db:"is_closed" json:"is_closed"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EffectiveHours is what applies to one calendar date once special hours
// and the weekly template have been resolved.
type EffectiveHours struct {
	Date        Date   `json:"date"`
	OpenTime    *Clock `json:"open_time"`
	CloseTime   *Clock `json:"close_time"`
	IsClosed    bool   `json:"is_closed"`
	Source      Source `json:"source"`
	SourceID    int    `json:"source_id"`
	Description string `json:"description,omitempty"`
}

// Covers reports whether the wall-clock interval [start, end] lies inside
// the open hours of this date.
func (e *EffectiveHours) Covers(start, end tz.LocalTime) bool {
	if e.IsClosed || e.OpenTime == nil || e.CloseTime == nil {
		return false
	}
	day := e.Date.Time
	if !start.Date().Equal(day) || !end.Date().Equal(day) {
		return false
	}
	open, close := e.OpenTime.On(day), e.CloseTime.On(day)
	return !start.Wall().Before(open) && !end.Wall().After(close)
}

type UpdateWeeklyRequest struct {
	OpenTime  *Clock `json:"open_time"`
	CloseTime *Clock `json:"close_time"`
	IsClosed  bool   `json:"is_closed"`
}

type SpecialHoursRequest struct {
	Date        string `json:"date" binding:"required"`
	OpenTime    *Clock `json:"open_time"`
	CloseTime   *Clock `json:"close_time"`
	IsClosed    bool   `json:"is_closed"`
	Description string `json:"description" binding:"max=255"`
}

// Validate enforces the hours shape: a closed day has no times, an open day
// has both and closes after it opens.
func Validate(open, close *Clock, isClosed bool) error {
	if isClosed {
		if open != nil || close != nil {
			return apperr.Validation(apperr.CodeHoursInvalid, "closed day cannot have open or close time")
		}
		return nil
	}
	if open == nil || close == nil {
		return apperr.Validation(apperr.CodeHoursInvalid, "open day requires open and close time")
	}
	if !open.Before(*close) {
		return apperr.Validation(apperr.CodeHoursInvalid, "close time must be after open time")
	}
	return nil
}

// NewGymHours builds a validated template row.
func NewGymHours(gymID, dayOfWeek int, open, close *Clock, isClosed bool) (GymHours, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return GymHours{}, apperr.Validation(apperr.CodeHoursInvalid, "day_of_week must be between 0 and 6")
	}
	if err := Validate(open, close, isClosed); err != nil {
		return GymHours{}, err
	}
	return GymHours{GymID: gymID, DayOfWeek: dayOfWeek, OpenTime: open, CloseTime: close, IsClosed: isClosed}, nil
}

func NewSpecialHours(gymID int, date time.Time, open, close *Clock, isClosed bool, description string) (SpecialHours, error) {
	if err := Validate(open, close, isClosed); err != nil {
		return SpecialHours{}, err
	}
	return SpecialHours{
		GymID:       gymID,
		Date:        Date{tz.DateOf(date)},
		OpenTime:    open,
		CloseTime:   close,
		IsClosed:    isClosed,
		Description: description,
	}, nil
}

// DefaultHours is the template a gym gets before anyone edits it:
// 09:00-21:00, Sunday closed.
func DefaultHours(gymID, dayOfWeek int) GymHours {
	if dayOfWeek == sunday {
		return GymHours{GymID: gymID, DayOfWeek: dayOfWeek, IsClosed: true}
	}
	open, close := DefaultOpen, DefaultClose
	return GymHours{GymID: gymID, DayOfWeek: dayOfWeek, OpenTime: &open, CloseTime: &close}
}

func fromRegular(date time.Time, h GymHours) EffectiveHours {
	return EffectiveHours{
		Date:      Date{date},
		OpenTime:  h.OpenTime,
		CloseTime: h.CloseTime,
		IsClosed:  h.IsClosed,
		Source:    SourceRegular,
		SourceID:  h.ID,
	}
}

func fromSpecial(s SpecialHours) EffectiveHours {
	return EffectiveHours{
		Date:        s.Date,
		OpenTime:    s.OpenTime,
		CloseTime:   s.CloseTime,
		IsClosed:    s.IsClosed,
		Source:      SourceSpecial,
		SourceID:    s.ID,
		Description: s.Description,
	}
}

// Date is a calendar date stored in a DATE column.
type Date struct {
	time.Time
}

func (d Date) String() string {
	return d.Format(tz.DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := tz.ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = tz.DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(tz.DateLayout) {
		s = s[:len(tz.DateLayout)]
	}
	t, err := tz.ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}
