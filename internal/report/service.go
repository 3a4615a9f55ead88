// Package report renders session rosters as spreadsheets for the front desk.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"gymflow/internal/participation"
	"gymflow/internal/schedule"
	"gymflow/internal/tz"
)

const rosterSheet = "Roster"

var rosterHeaders = []string{"Member", "Email", "Status", "Registered", "Attended", "Cancelled", "Reason"}

type SessionLookup interface {
	Get(ctx context.Context, gymID, id int) (*schedule.SessionView, error)
}

type RosterLookup interface {
	Roster(ctx context.Context, gymID, sessionID int) ([]participation.RosterEntry, error)
}

type GymLookup interface {
	Location(ctx context.Context, gymID int) (*time.Location, error)
}

// Export is a rendered workbook ready to stream.
type Export struct {
	FileName string
	Data     []byte
}

type Service interface {
	RosterWorkbook(ctx context.Context, gymID, sessionID int) (*Export, error)
}

type service struct {
	sessions SessionLookup
	rosters  RosterLookup
	gyms     GymLookup
}

func NewService(sessions SessionLookup, rosters RosterLookup, gyms GymLookup) Service {
	return &service{sessions: sessions, rosters: rosters, gyms: gyms}
}

func (s *service) RosterWorkbook(ctx context.Context, gymID, sessionID int) (*Export, error) {
	session, err := s.sessions.Get(ctx, gymID, sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := s.rosters.Roster(ctx, gymID, sessionID)
	if err != nil {
		return nil, err
	}
	loc, err := s.gyms.Location(ctx, gymID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	title := fmt.Sprintf("%s %s", session.ClassName, session.StartLocal.Wall().Format("2006-01-02 15:04"))
	if session.Room != "" {
		title += " (" + session.Room + ")"
	}
	if err := f.SetCellValue(rosterSheet, "A1", title); err != nil {
		return nil, err
	}
	for i, header := range rosterHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(rosterSheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, e := range entries {
		row := i + 3
		values := []any{
			e.MemberName,
			e.MemberEmail,
			string(e.Status),
			local(&e.RegistrationTime, loc),
			local(e.AttendanceTime, loc),
			local(e.CancellationTime, loc),
			"",
		}
		if e.CancellationReason != nil {
			values[6] = *e.CancellationReason
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(rosterSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
	}
	if err := f.SetColWidth(rosterSheet, "A", "G", 20); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return &Export{
		FileName: fmt.Sprintf("roster_%d_%s.xlsx", session.ID, session.StartLocal.Wall().Format("20060102_1504")),
		Data:     buf.Bytes(),
	}, nil
}

func local(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return tz.ToLocal(*t, loc).Wall().Format("2006-01-02 15:04")
}
