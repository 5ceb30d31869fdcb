package schedules

import "time"

// Entry is a planned assignment of one employee to one location. A non-empty
// Recurrence holds an RFC 5545 RRULE anchored at StartsAt.
type Entry struct {
	ID           int64      `json:"id"`
	EmployeeID   int64      `json:"employeeId"`
	EmployeeName string     `json:"employeeName,omitempty"`
	LocationID   int64      `json:"locationId"`
	LocationName string     `json:"locationName,omitempty"`
	StartsAt     time.Time  `json:"startsAt"`
	EndsAt       time.Time  `json:"endsAt"`
	Recurrence   string     `json:"recurrence,omitempty"`
	RepeatUntil  *time.Time `json:"repeatUntil,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (e Entry) Duration() time.Duration {
	return e.EndsAt.Sub(e.StartsAt)
}

func (e Entry) Recurring() bool {
	return e.Recurrence != ""
}

// Shift is one concrete occurrence of an Entry.
type Shift struct {
	EntryID    int64     `json:"entryId"`
	EmployeeID int64     `json:"employeeId"`
	LocationID int64     `json:"locationId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type Filter struct {
	EmployeeID int64
	LocationID int64
}
