package schedules

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	Store StoreAPI
	Zone  *time.Location
}

func NewService(store StoreAPI, zone *time.Location) *Service {
	if zone == nil {
		zone = time.UTC
	}
	return &Service{Store: store, Zone: zone}
}

func (s *Service) Create(ctx context.Context, e Entry) (Entry, error) {
	if e.EmployeeID <= 0 || e.LocationID <= 0 {
		return Entry{}, fmt.Errorf("%w: employee and location are required", ErrInvalidInput)
	}
	if e.StartsAt.IsZero() || !e.EndsAt.After(e.StartsAt) {
		return Entry{}, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	if e.Duration() > maxShiftLength {
		return Entry{}, fmt.Errorf("%w: a shift cannot exceed %s", ErrInvalidInput, maxShiftLength)
	}
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.EndsAt.UTC()
	e.Notes = strings.TrimSpace(e.Notes)

	e.Recurrence = normalizeRule(e.Recurrence)
	if e.Recurring() {
		if _, err := parseRule(e.Recurrence); err != nil {
			return Entry{}, err
		}
	}
	if e.RepeatUntil != nil {
		if !e.Recurring() {
			e.RepeatUntil = nil
		} else if e.RepeatUntil.Before(e.StartsAt) {
			return Entry{}, fmt.Errorf("%w: repeat-until precedes the first shift", ErrInvalidInput)
		} else {
			until := e.RepeatUntil.UTC()
			e.RepeatUntil = &until
		}
	}

	id, err := s.Store.Create(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	return s.Store.List(ctx, filter)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.Store.Delete(ctx, id)
}

// ShiftsOn returns the shifts of one employee at one location that start on
// the business day containing day.
func (s *Service) ShiftsOn(ctx context.Context, employeeID, locationID int64, day time.Time) ([]Shift, error) {
	local := day.In(s.Zone)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.Zone)
	return s.shifts(ctx, employeeID, locationID, from, from.AddDate(0, 0, 1))
}

// ShiftsBetween returns every shift starting in [from, to).
func (s *Service) ShiftsBetween(ctx context.Context, from, to time.Time) ([]Shift, error) {
	return s.shifts(ctx, 0, 0, from, to)
}

func (s *Service) shifts(ctx context.Context, employeeID, locationID int64, from, to time.Time) ([]Shift, error) {
	entries, err := s.Store.Candidates(ctx, employeeID, locationID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	var out []Shift
	for _, e := range entries {
		shifts, err := expand(e, from, to, s.Zone)
		if err != nil {
			return nil, fmt.Errorf("expand schedule entry %d: %w", e.ID, err)
		}
		out = append(out, shifts...)
	}
	sortShifts(out)
	return out, nil
}
