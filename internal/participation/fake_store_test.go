package participation

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"gymflow/internal/schedule"
)

// fakeStore is an in-memory store. InTx serialises transactions and applies
// their writes only on success, which mirrors the session row lock.
type fakeStore struct {
	mu             sync.Mutex
	sessions       map[int]schedule.SessionRow
	participations map[int]Participation
	nextID         int
	// insertErr, when set, is returned by the next Insert.
	insertErr error
}

func newFakeStore(sessions ...schedule.SessionRow) *fakeStore {
	f := &fakeStore{
		sessions:       map[int]schedule.SessionRow{},
		participations: map[int]Participation{},
		nextID:         1,
	}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx TxRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &fakeTx{
		store:          f,
		sessions:       make(map[int]schedule.SessionRow, len(f.sessions)),
		participations: make(map[int]Participation, len(f.participations)),
		nextID:         f.nextID,
	}
	for k, v := range f.sessions {
		tx.sessions[k] = v
	}
	for k, v := range f.participations {
		tx.participations[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	f.sessions, f.participations, f.nextID = tx.sessions, tx.participations, tx.nextID
	return nil
}

func (f *fakeStore) registered(sessionID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.participations {
		if p.SessionID == sessionID && p.Status == StatusRegistered {
			n++
		}
	}
	return n
}

func (f *fakeStore) session(id int) schedule.SessionRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.participations)
}

func (f *fakeStore) entries(gymID, userID int, keep func(Participation, schedule.SessionRow) bool) []HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []HistoryEntry
	for _, p := range f.participations {
		s := f.sessions[p.SessionID]
		if p.GymID != gymID || p.UserID != userID || !keep(p, s) {
			continue
		}
		out = append(out, HistoryEntry{Participation: p, ClassID: s.ClassID, ClassName: s.ClassName,
			StartTime: s.StartTime, EndTime: s.EndTime, Room: s.Room, SessionStatus: string(s.Status)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (f *fakeStore) History(ctx context.Context, gymID, userID, limit, offset int) ([]HistoryEntry, error) {
	all := f.entries(gymID, userID, func(Participation, schedule.SessionRow) bool { return true })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeStore) Upcoming(ctx context.Context, gymID, userID int, now time.Time, limit int) ([]HistoryEntry, error) {
	out := f.entries(gymID, userID, func(p Participation, s schedule.SessionRow) bool {
		return p.Status == StatusRegistered && s.StartTime.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) LastAttendance(ctx context.Context, gymID, userID int) (*HistoryEntry, error) {
	out := f.entries(gymID, userID, func(p Participation, _ schedule.SessionRow) bool { return p.Status == StatusAttended })
	if len(out) == 0 {
		return nil, fmt.Errorf("last attendance: %w", sql.ErrNoRows)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttendanceTime.After(*out[j].AttendanceTime) })
	return &out[0], nil
}

func (f *fakeStore) Summary(ctx context.Context, gymID, userID int, now time.Time) (*Summary, error) {
	var s Summary
	for _, e := range f.entries(gymID, userID, func(Participation, schedule.SessionRow) bool { return true }) {
		switch e.Status {
		case StatusRegistered:
			if e.StartTime.After(now) {
				s.Upcoming++
			}
		case StatusAttended:
			s.Attended++
		case StatusNoShow:
			s.NoShows++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return &s, nil
}

func (f *fakeStore) Roster(ctx context.Context, gymID, sessionID int) ([]RosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RosterEntry
	for _, p := range f.participations {
		if p.GymID == gymID && p.SessionID == sessionID {
			out = append(out, RosterEntry{Participation: p, MemberName: fmt.Sprintf("member %d", p.UserID)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeTx struct {
	store          *fakeStore
	sessions       map[int]schedule.SessionRow
	participations map[int]Participation
	nextID         int
}

func (t *fakeTx) LockSession(ctx context.Context, gymID, sessionID int) (*schedule.SessionRow, error) {
	s, ok := t.sessions[sessionID]
	if !ok || s.GymID != gymID {
		return nil, fmt.Errorf("lock session %d: %w", sessionID, sql.ErrNoRows)
	}
	return &s, nil
}

func (t *fakeTx) CountRegistered(ctx context.Context, sessionID int) (int, error) {
	n := 0
	for _, p := range t.participations {
		if p.SessionID == sessionID && p.Status == StatusRegistered {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) Get(ctx context.Context, sessionID, userID int) (*Participation, error) {
	for _, p := range t.participations {
		if p.SessionID == sessionID && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get participation: %w", sql.ErrNoRows)
}

func (t *fakeTx) Insert(ctx context.Context, p Participation) (*Participation, error) {
	if err := t.store.insertErr; err != nil {
		t.store.insertErr = nil
		return nil, fmt.Errorf("insert participation: %w", err)
	}
	for _, existing := range t.participations {
		if existing.SessionID == p.SessionID && existing.UserID == p.UserID {
			return nil, fmt.Errorf("insert participation: %w", &pq.Error{Code: "23505"})
		}
	}
	p.ID = t.nextID
	t.nextID++
	t.participations[p.ID] = p
	return &p, nil
}

func (t *fakeTx) Update(ctx context.Context, p Participation) (*Participation, error) {
	if _, ok := t.participations[p.ID]; !ok {
		return nil, fmt.Errorf("update participation %d: %w", p.ID, sql.ErrNoRows)
	}
	t.participations[p.ID] = p
	return &p, nil
}

func (t *fakeTx) RecomputeParticipants(ctx context.Context, sessionID int) (int, error) {
	n, _ := t.CountRegistered(ctx, sessionID)
	s := t.sessions[sessionID]
	s.CurrentParticipants = n
	t.sessions[sessionID] = s
	return n, nil
}
