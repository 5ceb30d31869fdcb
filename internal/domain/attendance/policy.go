package attendance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"poolops/internal/domain/schedules"
)

// Policy holds the attendance rules. Values come from configuration.
type Policy struct {
	GracePeriod  time.Duration
	EarlyClockIn time.Duration
	Zone         *time.Location
}

func DefaultPolicy() Policy {
	return Policy{GracePeriod: 30 * time.Minute, EarlyClockIn: 10 * time.Minute, Zone: time.UTC}
}

func (p Policy) zone() *time.Location {
	if p.Zone == nil {
		return time.UTC
	}
	return p.Zone
}

// DayStart returns midnight of the business day containing t.
func (p Policy) DayStart(t time.Time) time.Time {
	local := t.In(p.zone())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.zone())
}

// DayBounds returns [midnight, next midnight) of the business day containing t.
func (p Policy) DayBounds(t time.Time) (time.Time, time.Time) {
	start := p.DayStart(t)
	return start, start.AddDate(0, 0, 1)
}

// DateRange turns inclusive business dates into a half-open instant range.
func (p Policy) DateRange(startDate, endDate time.Time) (time.Time, time.Time, error) {
	from := p.DayStart(startDate)
	to := p.DayStart(endDate).AddDate(0, 0, 1)
	if !to.After(from) {
		return time.Time{}, time.Time{}, ErrInvalidTimeRange
	}
	return from, to, nil
}

// Evaluate decides lateness for a punch at t against shift. A nil shift is
// never late.
func (p Policy) Evaluate(t time.Time, shift *schedules.Shift) (bool, *int) {
	if shift == nil {
		return false, nil
	}
	if !t.After(shift.Start.Add(p.GracePeriod)) {
		return false, nil
	}
	minutes := int(t.Sub(shift.Start) / time.Minute)
	return true, &minutes
}

// Classify grades a clock-in against a shift start.
func (p Policy) Classify(t, start time.Time) PunchStatus {
	switch {
	case t.Before(start.Add(-p.EarlyClockIn)):
		return PunchEarly
	case t.After(start.Add(p.GracePeriod)):
		return PunchLate
	default:
		return PunchOnTime
	}
}

// HoursBetween is the exact elapsed time in hours.
func HoursBetween(in, out time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(out.Sub(in))).Div(decimal.NewFromInt(int64(time.Hour)))
}

// nearestShift picks the shift whose start is closest to t.
func nearestShift(shifts []schedules.Shift, t time.Time) *schedules.Shift {
	if len(shifts) == 0 {
		return nil
	}
	sorted := append([]schedules.Shift(nil), shifts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return absDuration(sorted[i].Start.Sub(t)) < absDuration(sorted[j].Start.Sub(t))
	})
	return &sorted[0]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
