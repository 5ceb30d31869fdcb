package attendance

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"poolops/internal/domain/schedules"
)

type memStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]ClockRecord
}

func newMemStore() *memStore {
	return &memStore{records: map[int64]ClockRecord{}}
}

func (m *memStore) openFor(employeeID, exceptID int64) bool {
	for id, rec := range m.records {
		if id != exceptID && rec.EmployeeID == employeeID && rec.IsOpen() {
			return true
		}
	}
	return false
}

func (m *memStore) InsertOpen(_ context.Context, rec ClockRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openFor(rec.EmployeeID, 0) {
		return 0, ErrAlreadyClockedIn
	}
	m.nextID++
	rec.ID = m.nextID
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memStore) Get(_ context.Context, id int64) (ClockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ClockRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (m *memStore) Close(_ context.Context, id int64, out time.Time, coord *Coordinate, hours decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	if !rec.IsOpen() {
		return ErrAlreadyClockedOut
	}
	rec.ClockOutTime = &out
	rec.ClockOutLocation = coord
	rec.TotalHours = &hours
	m.records[id] = rec
	return nil
}

func (m *memStore) Update(_ context.Context, rec ClockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return ErrRecordNotFound
	}
	if rec.IsOpen() && m.openFor(rec.EmployeeID, rec.ID) {
		return ErrAlreadyClockedIn
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) filter(keep func(ClockRecord) bool) []ClockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []ClockRecord{}
	for _, rec := range m.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockInTime.Before(out[j].ClockInTime) })
	return out
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (m *memStore) ListOpen(context.Context) ([]ClockRecord, error) {
	return m.filter(func(r ClockRecord) bool { return r.IsOpen() }), nil
}

func (m *memStore) ListBetween(_ context.Context, from, to time.Time) ([]ClockRecord, error) {
	return m.filter(func(r ClockRecord) bool { return within(r.ClockInTime, from, to) }), nil
}

func (m *memStore) ListByEmployee(_ context.Context, employeeID int64, from, to time.Time) ([]ClockRecord, error) {
	return m.filter(func(r ClockRecord) bool { return r.EmployeeID == employeeID && within(r.ClockInTime, from, to) }), nil
}

func (m *memStore) SumClosedHours(_ context.Context, employeeID int64, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range m.filter(func(r ClockRecord) bool {
		return r.EmployeeID == employeeID && !r.IsOpen() && within(r.ClockInTime, from, to)
	}) {
		total = total.Add(*r.TotalHours)
	}
	return total, nil
}

type fakeSchedule struct {
	shifts []schedules.Shift
}

func (f fakeSchedule) ShiftsOn(_ context.Context, employeeID, locationID int64, day time.Time) ([]schedules.Shift, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var out []schedules.Shift
	for _, s := range f.shifts {
		if s.EmployeeID == employeeID && s.LocationID == locationID && within(s.Start, start, start.AddDate(0, 0, 1)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeSchedule) ShiftsBetween(_ context.Context, from, to time.Time) ([]schedules.Shift, error) {
	var out []schedules.Shift
	for _, s := range f.shifts {
		if within(s.Start, from, to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

func newTestService(shifts ...schedules.Shift) (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(store, fakeSchedule{shifts: shifts}, DefaultPolicy())
	svc.Now = func() time.Time { return at(12, 0) }
	return svc, store
}

func morningShift(employeeID, locationID int64) schedules.Shift {
	return schedules.Shift{EntryID: 11, EmployeeID: employeeID, LocationID: locationID, Start: at(8, 0), End: at(16, 0)}
}

func TestClockInLateThenClockOut(t *testing.T) {
	svc, _ := newTestService(morningShift(7, 3))
	ctx := context.Background()

	rec, err := svc.ClockIn(ctx, ClockIn{EmployeeID: 7, LocationID: 3, At: at(8, 40)})
	require.NoError(t, err)
	assert.True(t, rec.IsLate)
	require.NotNil(t, rec.LateMinutes)
	assert.Equal(t, 40, *rec.LateMinutes)
	require.NotNil(t, rec.ScheduleID)
	assert.Equal(t, int64(11), *rec.ScheduleID)
	assert.Equal(t, StatusActive, rec.Status())
	assert.Equal(t, "Late (40 min)", rec.LateStatus())

	active, err := svc.GetActiveShifts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, rec.ID, active[0].ID)

	_, err = svc.ClockIn(ctx, ClockIn{EmployeeID: 7, LocationID: 3, At: at(9, 0)})
	require.ErrorIs(t, err, ErrAlreadyClockedIn)

	closed, err := svc.ClockOut(ctx, rec.ID, at(17, 0), nil)
	require.NoError(t, err)
	require.NotNil(t, closed.TotalHours)
	want := decimal.NewFromInt(25).Div(decimal.NewFromInt(3))
	assert.True(t, want.Equal(*closed.TotalHours), "got %s", closed.TotalHours)
	assert.Equal(t, StatusCompleted, closed.Status())

	active, err = svc.GetActiveShifts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.ClockOut(ctx, rec.ID, at(18, 0), nil)
	require.ErrorIs(t, err, ErrAlreadyClockedOut)
	_, err = svc.ClockOut(ctx, 404, at(18, 0), nil)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLatenessBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		punch       time.Time
		wantLate    bool
		wantMinutes int
	}{
		{name: "early window", punch: at(7, 50)},
		{name: "on the hour", punch: at(8, 0)},
		{name: "end of grace", punch: at(8, 30)},
		{name: "one minute past grace", punch: at(8, 31), wantLate: true, wantMinutes: 31},
		{name: "partial minutes floor", punch: at(8, 45).Add(59 * time.Second), wantLate: true, wantMinutes: 45},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(morningShift(7, 3))
			rec, err := svc.ClockIn(context.Background(), ClockIn{EmployeeID: 7, LocationID: 3, At: tc.punch})
			require.NoError(t, err)
			assert.Equal(t, tc.wantLate, rec.IsLate)
			if !tc.wantLate {
				assert.Nil(t, rec.LateMinutes)
				return
			}
			require.NotNil(t, rec.LateMinutes)
			assert.Equal(t, tc.wantMinutes, *rec.LateMinutes)
		})
	}
}

func TestClockInWithoutShiftIsNeverLate(t *testing.T) {
	svc, _ := newTestService()
	rec, err := svc.ClockIn(context.Background(), ClockIn{EmployeeID: 7, LocationID: 3, At: at(23, 0)})
	require.NoError(t, err)
	assert.False(t, rec.IsLate)
	assert.Nil(t, rec.LateMinutes)
	assert.Nil(t, rec.ScheduleID)
	assert.Equal(t, "On Time", rec.LateStatus())
}

func TestClockOutRejectsBackwardsTime(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	rec, err := svc.ClockIn(ctx, ClockIn{EmployeeID: 1, LocationID: 1, At: at(9, 0)})
	require.NoError(t, err)

	_, err = svc.ClockOut(ctx, rec.ID, at(9, 0), nil)
	require.ErrorIs(t, err, ErrInvalidTimeRange)
	_, err = svc.ClockOut(ctx, rec.ID, at(8, 0), nil)
	require.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestEditRecord(t *testing.T) {
	svc, _ := newTestService(morningShift(7, 3))
	ctx := context.Background()

	first, err := svc.ClockIn(ctx, ClockIn{EmployeeID: 7, LocationID: 3, At: at(8, 40)})
	require.NoError(t, err)
	_, err = svc.ClockOut(ctx, first.ID, at(12, 0), nil)
	require.NoError(t, err)

	out := at(16, 0)
	edited, err := svc.EditRecord(ctx, first.ID, Edit{ClockIn: at(8, 0), ClockOut: &out, LocationID: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), edited.LocationID)
	assert.True(t, decimal.NewFromInt(8).Equal(*edited.TotalHours))
	assert.True(t, edited.IsLate, "lateness is not recomputed")

	backwards := at(7, 0)
	_, err = svc.EditRecord(ctx, first.ID, Edit{ClockIn: at(8, 0), ClockOut: &backwards, LocationID: 3})
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	second, err := svc.ClockIn(ctx, ClockIn{EmployeeID: 7, LocationID: 3, At: at(17, 0)})
	require.NoError(t, err)
	_, err = svc.EditRecord(ctx, first.ID, Edit{ClockIn: at(8, 0), LocationID: 3})
	require.ErrorIs(t, err, ErrAlreadyClockedIn, "reopening while another record is open")

	reopened, err := svc.EditRecord(ctx, second.ID, Edit{ClockIn: at(16, 30), LocationID: 3})
	require.NoError(t, err)
	assert.Nil(t, reopened.TotalHours)
	assert.True(t, reopened.IsOpen())

	_, err = svc.EditRecord(ctx, 999, Edit{ClockIn: at(8, 0), LocationID: 3})
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTotalsAndHistory(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	day1 := at(0, 0)
	day2 := day1.AddDate(0, 0, 1)

	add := func(in time.Time, hours int64) {
		rec, err := svc.ClockIn(ctx, ClockIn{EmployeeID: 5, LocationID: 1, At: in})
		require.NoError(t, err)
		if hours > 0 {
			_, err = svc.ClockOut(ctx, rec.ID, in.Add(time.Duration(hours)*time.Hour), nil)
			require.NoError(t, err)
		}
	}
	add(day1.Add(6*time.Hour), 4)
	add(day1.Add(12*time.Hour), 4)
	add(day2.Add(8*time.Hour), 2)
	add(day2.Add(14*time.Hour), 0)

	total, err := svc.TotalHoursWorked(ctx, 5, day1, day2)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(total), "open record contributes zero, got %s", total)

	history, err := svc.WorkHistory(ctx, 5, day1, day2)
	require.NoError(t, err)
	assert.Len(t, history.Records, 4)
	assert.Equal(t, 2, history.DaysWorked)
	assert.True(t, decimal.NewFromInt(5).Equal(history.AverageHoursPerDay), "got %s", history.AverageHoursPerDay)

	records, err := svc.GetRecordsByEmployee(ctx, 5, day2, day2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = svc.GetRecordsByEmployee(ctx, 5, day2, day1)
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	empty, err := svc.WorkHistory(ctx, 99, day1, day2)
	require.NoError(t, err)
	assert.True(t, empty.AverageHoursPerDay.IsZero())
	assert.Len(t, store.records, 4)
}

func TestDaySummaryAndToday(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, employee := range []int64{1, 2} {
		rec, err := svc.ClockIn(ctx, ClockIn{EmployeeID: employee, LocationID: 1, At: at(8, 0)})
		require.NoError(t, err)
		_, err = svc.ClockOut(ctx, rec.ID, at(11, 0), nil)
		require.NoError(t, err)
	}
	_, err := svc.ClockIn(ctx, ClockIn{EmployeeID: 1, LocationID: 2, At: at(11, 30)})
	require.NoError(t, err)

	summary, err := svc.DaySummary(ctx, at(20, 0))
	require.NoError(t, err)
	assert.Len(t, summary.Records, 3)
	assert.Equal(t, 2, summary.Workers)
	assert.True(t, decimal.NewFromInt(6).Equal(summary.TotalHours))

	today, err := svc.TodaysRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, today, 3)
}

func TestPunches(t *testing.T) {
	svc, _ := newTestService(
		schedules.Shift{EntryID: 1, EmployeeID: 7, LocationID: 3, Start: at(8, 0), End: at(12, 0)},
		schedules.Shift{EntryID: 2, EmployeeID: 8, LocationID: 3, Start: at(9, 0), End: at(12, 0)},
		schedules.Shift{EntryID: 3, EmployeeID: 10, LocationID: 4, Start: at(10, 0), End: at(12, 0)},
	)
	ctx := context.Background()
	_, err := svc.ClockIn(ctx, ClockIn{EmployeeID: 7, LocationID: 3, At: at(7, 45)})
	require.NoError(t, err)
	_, err = svc.ClockIn(ctx, ClockIn{EmployeeID: 10, LocationID: 4, At: at(10, 35)})
	require.NoError(t, err)
	_, err = svc.ClockIn(ctx, ClockIn{EmployeeID: 9, LocationID: 3, At: at(11, 0)})
	require.NoError(t, err)

	punches, err := svc.Punches(ctx, at(0, 0))
	require.NoError(t, err)
	require.Len(t, punches, 4)

	got := map[int64]PunchStatus{}
	for _, p := range punches {
		got[p.EmployeeID] = p.Status
	}
	assert.Equal(t, PunchEarly, got[7])
	assert.Equal(t, PunchMissed, got[8])
	assert.Equal(t, PunchLate, got[10])
	assert.Equal(t, PunchUnscheduled, got[9])
}

func TestClockRecordJSON(t *testing.T) {
	minutes := 12
	raw, err := ClockRecord{ID: 1, IsLate: true, LateMinutes: &minutes}.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":"Active"`)
	assert.Contains(t, string(raw), `"lateStatus":"Late (12 min)"`)
}

func TestWriteWorkHistoryXLSX(t *testing.T) {
	hours := decimal.NewFromInt(25).Div(decimal.NewFromInt(3))
	out := at(17, 0)
	history := WorkHistory{
		EmployeeID: 7,
		Records: []ClockRecord{{
			ID: 1, LocationName: "Lakeside", ClockInTime: at(8, 40), ClockOutTime: &out, TotalHours: &hours,
		}},
		TotalHours:         hours,
		DaysWorked:         1,
		AverageHoursPerDay: hours.Round(2),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkHistoryXLSX(&buf, history, time.UTC))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, []string{"2025-06-02", "Lakeside", "08:40", "17:00", "8.33", "Completed", "On Time"}, rows[1])
}
