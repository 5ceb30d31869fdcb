package schedules

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// maxShiftLength bounds a single occurrence; overnight pool closings fit.
const maxShiftLength = 24 * time.Hour

func normalizeRule(rule string) string {
	rule = strings.TrimSpace(rule)
	if len(rule) >= 6 && strings.EqualFold(rule[:6], "RRULE:") {
		rule = rule[6:]
	}
	return strings.TrimSpace(rule)
}

func parseRule(rule string) (*rrule.RRule, error) {
	if strings.ContainsAny(rule, "\r\n") {
		return nil, fmt.Errorf("%w: only a single RRULE line is accepted", ErrInvalidRule)
	}
	parsed, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return parsed, nil
}

// expand returns the shifts of e that start in [from, to). Recurrence is
// evaluated in zone so weekday and wall-clock rules follow the business
// calendar.
func expand(e Entry, from, to time.Time, zone *time.Location) ([]Shift, error) {
	if !to.After(from) {
		return nil, nil
	}
	shift := func(start time.Time) Shift {
		start = start.UTC()
		return Shift{
			EntryID:    e.ID,
			EmployeeID: e.EmployeeID,
			LocationID: e.LocationID,
			Start:      start,
			End:        start.Add(e.Duration()),
		}
	}

	if !e.Recurring() {
		if e.StartsAt.Before(from) || !e.StartsAt.Before(to) {
			return nil, nil
		}
		return []Shift{shift(e.StartsAt)}, nil
	}

	rule, err := parseRule(e.Recurrence)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		zone = time.UTC
	}
	rule.DTStart(e.StartsAt.In(zone))

	var out []Shift
	for _, occurrence := range rule.Between(from, to, true) {
		if !occurrence.Before(to) {
			continue
		}
		if e.RepeatUntil != nil && occurrence.After(*e.RepeatUntil) {
			break
		}
		out = append(out, shift(occurrence))
	}
	return out, nil
}

func sortShifts(shifts []Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].Start.Equal(shifts[j].Start) {
			return shifts[i].EntryID < shifts[j].EntryID
		}
		return shifts[i].Start.Before(shifts[j].Start)
	})
}
