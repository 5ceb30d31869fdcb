package locations

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ninety    = decimal.NewFromInt(90)
	oneEighty = decimal.NewFromInt(180)
)

// normalize trims text fields, fills defaults and checks the invariants a
// location must satisfy before it is written.
func normalize(loc *JobLocation) error {
	loc.Name = strings.TrimSpace(loc.Name)
	if loc.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	loc.Country = strings.TrimSpace(loc.Country)
	if loc.Country == "" {
		loc.Country = DefaultCountry
	}
	if loc.RadiusMeters == 0 {
		loc.RadiusMeters = DefaultRadiusMeters
	}
	if loc.RadiusMeters < 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidInput)
	}
	loc.LockboxCode = strings.TrimSpace(loc.LockboxCode)
	if len(loc.LockboxCode) > MaxLockboxLength {
		return fmt.Errorf("%w: lockbox code must be at most %d characters", ErrInvalidInput, MaxLockboxLength)
	}
	if (loc.Latitude == nil) != (loc.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidInput)
	}
	if loc.Latitude != nil && (loc.Latitude.Abs().GreaterThan(ninety) || loc.Longitude.Abs().GreaterThan(oneEighty)) {
		return fmt.Errorf("%w: coordinate out of range", ErrInvalidInput)
	}
	if !loc.HasWadingPool {
		loc.WadingPoolGallons = nil
	}
	if !loc.HasSpa {
		loc.SpaGallons = nil
	}

	contacts := loc.Contacts[:0]
	primarySeen := false
	for _, c := range loc.Contacts {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if c.IsPrimary {
			if primarySeen {
				c.IsPrimary = false
			}
			primarySeen = true
		}
		contacts = append(contacts, c)
	}
	loc.Contacts = contacts
	return nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
