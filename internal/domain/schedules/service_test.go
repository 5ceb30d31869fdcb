package schedules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]Entry
}

func newMemStore() *memStore {
	return &memStore{entries: map[int64]Entry{}}
}

func (m *memStore) Create(_ context.Context, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.entries[e.ID] = e
	return e.ID, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *memStore) List(_ context.Context, filter Filter) ([]Entry, error) {
	return m.Candidates(context.Background(), filter.EmployeeID, filter.LocationID, time.Time{}, time.Time{})
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *memStore) Candidates(_ context.Context, employeeID, locationID int64, _, _ time.Time) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for id := int64(1); id <= m.nextID; id++ {
		e, ok := m.entries[id]
		if !ok {
			continue
		}
		if employeeID > 0 && e.EmployeeID != employeeID {
			continue
		}
		if locationID > 0 && e.LocationID != locationID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

var monday = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func TestShiftsOnSingleEntry(t *testing.T) {
	svc := NewService(newMemStore(), time.UTC)
	ctx := context.Background()
	_, err := svc.Create(ctx, Entry{EmployeeID: 7, LocationID: 3, StartsAt: monday, EndsAt: monday.Add(8 * time.Hour)})
	require.NoError(t, err)

	shifts, err := svc.ShiftsOn(ctx, 7, 3, monday.Add(4*time.Hour))
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, monday, shifts[0].Start)
	assert.Equal(t, monday.Add(8*time.Hour), shifts[0].End)

	shifts, err = svc.ShiftsOn(ctx, 7, 3, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, shifts)

	shifts, err = svc.ShiftsOn(ctx, 8, 3, monday)
	require.NoError(t, err)
	assert.Empty(t, shifts)
}

func TestShiftsBetweenExpandsWeeklyRule(t *testing.T) {
	svc := NewService(newMemStore(), time.UTC)
	ctx := context.Background()
	_, err := svc.Create(ctx, Entry{
		EmployeeID: 7,
		LocationID: 3,
		StartsAt:   monday,
		EndsAt:     monday.Add(8 * time.Hour),
		Recurrence: "RRULE:FREQ=WEEKLY;BYDAY=MO,WE",
	})
	require.NoError(t, err)

	shifts, err := svc.ShiftsBetween(ctx, monday.Add(-8*time.Hour), monday.AddDate(0, 0, 7).Add(-8*time.Hour))
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, monday, shifts[0].Start)
	assert.Equal(t, monday.AddDate(0, 0, 2), shifts[1].Start)
	assert.Equal(t, 8*time.Hour, shifts[1].End.Sub(shifts[1].Start))
}

func TestRepeatUntilStopsExpansion(t *testing.T) {
	svc := NewService(newMemStore(), time.UTC)
	ctx := context.Background()
	until := monday.AddDate(0, 0, 3)
	entry, err := svc.Create(ctx, Entry{
		EmployeeID:  7,
		LocationID:  3,
		StartsAt:    monday,
		EndsAt:      monday.Add(4 * time.Hour),
		Recurrence:  "FREQ=DAILY",
		RepeatUntil: &until,
	})
	require.NoError(t, err)
	assert.Equal(t, "FREQ=DAILY", entry.Recurrence)

	shifts, err := svc.ShiftsBetween(ctx, monday, monday.AddDate(0, 0, 14))
	require.NoError(t, err)
	assert.Len(t, shifts, 4)
}

func TestRecurrenceFollowsBusinessZone(t *testing.T) {
	zone := time.FixedZone("CDT", -5*3600)
	svc := NewService(newMemStore(), zone)
	ctx := context.Background()
	start := time.Date(2025, 6, 2, 7, 0, 0, 0, zone)
	_, err := svc.Create(ctx, Entry{EmployeeID: 1, LocationID: 1, StartsAt: start, EndsAt: start.Add(2 * time.Hour), Recurrence: "FREQ=WEEKLY;BYDAY=MO"})
	require.NoError(t, err)

	shifts, err := svc.ShiftsOn(ctx, 1, 1, time.Date(2025, 6, 9, 23, 30, 0, 0, zone))
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC), shifts[0].Start)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemStore(), time.UTC)
	before := monday.Add(-time.Hour)
	tests := []struct {
		name string
		in   Entry
		want error
	}{
		{name: "missing employee", in: Entry{LocationID: 1, StartsAt: monday, EndsAt: monday.Add(time.Hour)}, want: ErrInvalidInput},
		{name: "end before start", in: Entry{EmployeeID: 1, LocationID: 1, StartsAt: monday, EndsAt: monday}, want: ErrInvalidInput},
		{name: "too long", in: Entry{EmployeeID: 1, LocationID: 1, StartsAt: monday, EndsAt: monday.Add(25 * time.Hour)}, want: ErrInvalidInput},
		{name: "bad rule", in: Entry{EmployeeID: 1, LocationID: 1, StartsAt: monday, EndsAt: monday.Add(time.Hour), Recurrence: "FREQ=SOMETIMES"}, want: ErrInvalidRule},
		{name: "multi-line rule", in: Entry{EmployeeID: 1, LocationID: 1, StartsAt: monday, EndsAt: monday.Add(time.Hour), Recurrence: "FREQ=DAILY\nFREQ=WEEKLY"}, want: ErrInvalidRule},
		{name: "until before start", in: Entry{EmployeeID: 1, LocationID: 1, StartsAt: monday, EndsAt: monday.Add(time.Hour), Recurrence: "FREQ=DAILY", RepeatUntil: &before}, want: ErrInvalidInput},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRepeatUntilDroppedForSingleEntry(t *testing.T) {
	svc := NewService(newMemStore(), time.UTC)
	until := monday.AddDate(0, 1, 0)
	e, err := svc.Create(context.Background(), Entry{EmployeeID: 1, LocationID: 1, StartsAt: monday, EndsAt: monday.Add(time.Hour), RepeatUntil: &until})
	require.NoError(t, err)
	assert.Nil(t, e.RepeatUntil)
}
