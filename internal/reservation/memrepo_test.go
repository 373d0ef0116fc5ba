package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/field"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/daytime"
)

// memRepo is an in-memory Repository. Create and UpdateSchedule reject live
// overlaps under the same lock as the write, like the store's constraints.
type memRepo struct {
	mu     sync.Mutex
	seq    int
	rows   map[string]*Reservation
	failOn map[string]error // Transition failures keyed by id
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]*Reservation{}, failOn: map[string]error{}}
}

func overlaps(a, b *Reservation) bool {
	as, _ := daytime.ParseClock(a.StartTime)
	ae, _ := daytime.ParseClock(a.EndTime)
	bs, _ := daytime.ParseClock(b.StartTime)
	be, _ := daytime.ParseClock(b.EndTime)
	return as < be && ae > bs
}

func (m *memRepo) conflictLocked(r *Reservation) bool {
	for _, x := range m.rows {
		if x.ID == r.ID || x.FieldID != r.FieldID || x.Date != r.Date || !x.Status.Live() {
			continue
		}
		if overlaps(x, r) {
			return true
		}
	}
	return false
}

func (m *memRepo) Create(_ context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Status.Live() && m.conflictLocked(r) {
		return ErrSlotConflict
	}
	m.seq++
	r.ID = fmt.Sprintf("res-%d", m.seq)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

// put stores r as is, bypassing conflict checks.
func (m *memRepo) put(r *Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rows[r.ID] = &cp
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) sorted(keep func(*Reservation) bool) []*Reservation {
	var out []*Reservation
	for _, r := range m.rows {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (m *memRepo) List(_ context.Context, f Filter) ([]*Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(r *Reservation) bool {
		return (f.FieldID == "" || r.FieldID == f.FieldID) &&
			(f.PlayerID == "" || r.PlayerID == f.PlayerID) &&
			(f.OwnerID == "" || r.OwnerID == f.OwnerID) &&
			(f.Status == "" || r.Status == f.Status)
	})
	return out, len(out), nil
}

func (m *memRepo) ListByFieldDate(_ context.Context, fieldID, date string) ([]*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(r *Reservation) bool { return r.FieldID == fieldID && r.Date == date }), nil
}

func (m *memRepo) HasOverlap(_ context.Context, fieldID, date, start, end, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	probe := &Reservation{ID: excludeID, FieldID: fieldID, Date: date, StartTime: start, EndTime: end}
	return m.conflictLocked(probe), nil
}

func (m *memRepo) UpdateSchedule(_ context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[r.ID]
	if !ok || cur.Status != StatusActive {
		return ErrInvalidTransition
	}
	if m.conflictLocked(r) {
		return ErrSlotConflict
	}
	cur.Date, cur.StartTime, cur.EndTime, cur.TotalPrice = r.Date, r.StartTime, r.EndTime, r.TotalPrice
	cur.UpdatedAt = time.Now()
	r.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *memRepo) Transition(_ context.Context, id string, from, to Status) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[id]; ok {
		return nil, err
	}
	cur, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.Status != from {
		return nil, ErrInvalidTransition
	}
	cur.Status = to
	cur.UpdatedAt = time.Now()
	cp := *cur
	return &cp, nil
}

func (m *memRepo) ListActive(_ context.Context, onOrBefore string) ([]*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(r *Reservation) bool { return r.Status == StatusActive && r.Date <= onOrBefore }), nil
}

func (m *memRepo) status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Status
}

type fieldStub map[string]*field.Field

func (s fieldStub) GetByID(_ context.Context, id string) (*field.Field, error) {
	f, ok := s[id]
	if !ok {
		return nil, field.ErrNotFound
	}
	return f, nil
}
