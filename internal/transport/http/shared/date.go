package shared

import (
	"strings"
	"time"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

// ParseDateIn is ParseDate with bare dates read as midnight in zone.
func ParseDateIn(value string, zone *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, false, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, zone)
	return parsed, true, err
}

// DateRange reads startDate/endDate query values. Missing values default to
// the trailing window of days ending at the end of today; a bare end date
// covers that whole day.
func (v *Validator) DateRange(startRaw, endRaw string, zone *time.Location, now time.Time, days int) (time.Time, time.Time) {
	if zone == nil {
		zone = time.UTC
	}
	local := now.In(zone)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)

	start := today.AddDate(0, 0, -days)
	if parsed, _, err := ParseDateIn(startRaw, zone); err != nil {
		v.Add("startDate", "must be a valid date in YYYY-MM-DD format")
	} else if !parsed.IsZero() {
		start = parsed
	}

	end := today.AddDate(0, 0, 1).Add(-time.Second)
	if parsed, bare, err := ParseDateIn(endRaw, zone); err != nil {
		v.Add("endDate", "must be a valid date in YYYY-MM-DD format")
	} else if !parsed.IsZero() {
		end = parsed
		if bare {
			end = parsed.AddDate(0, 0, 1).Add(-time.Second)
		}
	}

	v.DateOrder("startDate", start, "endDate", end)
	return start.UTC(), end.UTC()
}
