package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"poolops/internal/domain/schedules"
	"poolops/internal/platform/metrics"
)

// ScheduleProvider answers which shifts an employee was expected to work.
type ScheduleProvider interface {
	ShiftsOn(ctx context.Context, employeeID, locationID int64, day time.Time) ([]schedules.Shift, error)
	ShiftsBetween(ctx context.Context, from, to time.Time) ([]schedules.Shift, error)
}

type Service struct {
	Store     StoreAPI
	Schedules ScheduleProvider
	Policy    Policy
	Metrics   *metrics.Collector
	Now       func() time.Time
}

func NewService(store StoreAPI, provider ScheduleProvider, policy Policy) *Service {
	if policy.Zone == nil {
		policy.Zone = time.UTC
	}
	return &Service{Store: store, Schedules: provider, Policy: policy, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type ClockIn struct {
	EmployeeID int64
	LocationID int64
	At         time.Time
	Coordinate *Coordinate
	Notes      string
}

// ClockIn opens a record. A second open record for the same employee is
// rejected by storage with ErrAlreadyClockedIn.
func (s *Service) ClockIn(ctx context.Context, in ClockIn) (ClockRecord, error) {
	if in.EmployeeID <= 0 || in.LocationID <= 0 {
		return ClockRecord{}, fmt.Errorf("%w: employee and location are required", ErrInvalidInput)
	}
	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	rec := ClockRecord{
		EmployeeID:      in.EmployeeID,
		LocationID:      in.LocationID,
		ClockInTime:     at,
		ClockInLocation: in.Coordinate,
		JobsiteNotes:    in.Notes,
	}
	if shift := s.shiftFor(ctx, in.EmployeeID, in.LocationID, at); shift != nil {
		entryID := shift.EntryID
		rec.ScheduleID = &entryID
		rec.IsLate, rec.LateMinutes = s.Policy.Evaluate(at, shift)
	}

	id, err := s.Store.InsertOpen(ctx, rec)
	if err != nil {
		return ClockRecord{}, err
	}
	s.Metrics.Count(metrics.EventClockIn)
	if rec.IsLate {
		s.Metrics.Count(metrics.EventLatePunch)
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) shiftFor(ctx context.Context, employeeID, locationID int64, at time.Time) *schedules.Shift {
	if s.Schedules == nil {
		return nil
	}
	shifts, err := s.Schedules.ShiftsOn(ctx, employeeID, locationID, at)
	if err != nil {
		slog.Warn("schedule lookup failed; clocking in unscheduled", "employee_id", employeeID, "location_id", locationID, "error", err)
		return nil
	}
	return nearestShift(shifts, at)
}

// ClockOut closes an open record and fixes its total hours.
func (s *Service) ClockOut(ctx context.Context, recordID int64, at time.Time, coord *Coordinate) (ClockRecord, error) {
	rec, err := s.Store.Get(ctx, recordID)
	if err != nil {
		return ClockRecord{}, err
	}
	if !rec.IsOpen() {
		return ClockRecord{}, ErrAlreadyClockedOut
	}
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	if !at.After(rec.ClockInTime) {
		return ClockRecord{}, ErrInvalidTimeRange
	}

	if err := s.Store.Close(ctx, recordID, at, coord, HoursBetween(rec.ClockInTime, at)); err != nil {
		return ClockRecord{}, err
	}
	s.Metrics.Count(metrics.EventClockOut)
	return s.Store.Get(ctx, recordID)
}

type Edit struct {
	ClockIn    time.Time
	ClockOut   *time.Time
	LocationID int64
}

// EditRecord is the supervisor correction path. Lateness is left as
// recorded at clock-in.
func (s *Service) EditRecord(ctx context.Context, recordID int64, edit Edit) (ClockRecord, error) {
	if edit.ClockIn.IsZero() || edit.LocationID <= 0 {
		return ClockRecord{}, fmt.Errorf("%w: clock-in and location are required", ErrInvalidInput)
	}
	rec, err := s.Store.Get(ctx, recordID)
	if err != nil {
		return ClockRecord{}, err
	}

	rec.ClockInTime = edit.ClockIn.UTC()
	rec.LocationID = edit.LocationID
	if edit.ClockOut == nil {
		rec.ClockOutTime = nil
		rec.ClockOutLocation = nil
		rec.TotalHours = nil
	} else {
		out := edit.ClockOut.UTC()
		if !out.After(rec.ClockInTime) {
			return ClockRecord{}, ErrInvalidTimeRange
		}
		hours := HoursBetween(rec.ClockInTime, out)
		rec.ClockOutTime = &out
		rec.TotalHours = &hours
	}

	if err := s.Store.Update(ctx, rec); err != nil {
		return ClockRecord{}, err
	}
	return s.Store.Get(ctx, recordID)
}

func (s *Service) Get(ctx context.Context, recordID int64) (ClockRecord, error) {
	return s.Store.Get(ctx, recordID)
}

// GetActiveShifts lists every open record, oldest clock-in first.
func (s *Service) GetActiveShifts(ctx context.Context) ([]ClockRecord, error) {
	return s.Store.ListOpen(ctx)
}

// GetRecordsByEmployee returns records whose clock-in falls on a business
// date in [startDate, endDate].
func (s *Service) GetRecordsByEmployee(ctx context.Context, employeeID int64, startDate, endDate time.Time) ([]ClockRecord, error) {
	from, to, err := s.Policy.DateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return s.Store.ListByEmployee(ctx, employeeID, from, to)
}

// TotalHoursWorked sums closed records; open ones count as zero.
func (s *Service) TotalHoursWorked(ctx context.Context, employeeID int64, startDate, endDate time.Time) (decimal.Decimal, error) {
	from, to, err := s.Policy.DateRange(startDate, endDate)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Store.SumClosedHours(ctx, employeeID, from, to)
}

func (s *Service) TodaysRecords(ctx context.Context) ([]ClockRecord, error) {
	from, to := s.Policy.DayBounds(s.now())
	return s.Store.ListBetween(ctx, from, to)
}

// WorkHistory averages over the distinct days actually worked, not over
// the length of the range.
func (s *Service) WorkHistory(ctx context.Context, employeeID int64, startDate, endDate time.Time) (WorkHistory, error) {
	records, err := s.GetRecordsByEmployee(ctx, employeeID, startDate, endDate)
	if err != nil {
		return WorkHistory{}, err
	}
	total := sumHours(records)
	days := map[string]struct{}{}
	for _, rec := range records {
		days[s.Policy.DayStart(rec.ClockInTime).Format(time.DateOnly)] = struct{}{}
	}

	history := WorkHistory{
		EmployeeID:         employeeID,
		From:               s.Policy.DayStart(startDate),
		To:                 s.Policy.DayStart(endDate),
		Records:            records,
		TotalHours:         total,
		DaysWorked:         len(days),
		AverageHoursPerDay: decimal.Zero,
	}
	if len(days) > 0 {
		history.AverageHoursPerDay = total.Div(decimal.NewFromInt(int64(len(days)))).Round(2)
	}
	return history, nil
}

func (s *Service) DaySummary(ctx context.Context, date time.Time) (DaySummary, error) {
	from, to := s.Policy.DayBounds(date)
	records, err := s.Store.ListBetween(ctx, from, to)
	if err != nil {
		return DaySummary{}, err
	}
	workers := map[int64]struct{}{}
	for _, rec := range records {
		workers[rec.EmployeeID] = struct{}{}
	}
	return DaySummary{Date: from, Records: records, TotalHours: sumHours(records), Workers: len(workers)}, nil
}

// Punches lines up the shifts scheduled on date with the records clocked
// that day. Records that match no shift are reported as unscheduled.
func (s *Service) Punches(ctx context.Context, date time.Time) ([]Punch, error) {
	from, to := s.Policy.DayBounds(date)
	records, err := s.Store.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var shifts []schedules.Shift
	if s.Schedules != nil {
		shifts, err = s.Schedules.ShiftsBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
	}

	used := make([]bool, len(records))
	match := func(shift schedules.Shift) int {
		best := -1
		for i, rec := range records {
			if used[i] || rec.EmployeeID != shift.EmployeeID || rec.LocationID != shift.LocationID {
				continue
			}
			if rec.ScheduleID != nil && *rec.ScheduleID == shift.EntryID {
				return i
			}
			if best < 0 || absDuration(rec.ClockInTime.Sub(shift.Start)) < absDuration(records[best].ClockInTime.Sub(shift.Start)) {
				best = i
			}
		}
		return best
	}

	out := make([]Punch, 0, len(shifts)+len(records))
	for _, shift := range shifts {
		shift := shift
		p := Punch{EmployeeID: shift.EmployeeID, LocationID: shift.LocationID, Shift: &shift, Status: PunchMissed}
		if i := match(shift); i >= 0 {
			used[i] = true
			rec := records[i]
			p.Record = &rec
			p.Status = s.Policy.Classify(rec.ClockInTime, shift.Start)
		}
		out = append(out, p)
	}
	for i, rec := range records {
		if used[i] {
			continue
		}
		rec := rec
		out = append(out, Punch{EmployeeID: rec.EmployeeID, LocationID: rec.LocationID, Record: &rec, Status: PunchUnscheduled})
	}
	sort.SliceStable(out, func(i, j int) bool { return punchTime(out[i]).Before(punchTime(out[j])) })
	return out, nil
}

func punchTime(p Punch) time.Time {
	if p.Shift != nil {
		return p.Shift.Start
	}
	return p.Record.ClockInTime
}

func sumHours(records []ClockRecord) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		if rec.TotalHours != nil {
			total = total.Add(*rec.TotalHours)
		}
	}
	return total
}
