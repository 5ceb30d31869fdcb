package users

import (
	"encoding/json"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusTerminated Status = "Terminated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusTerminated:
		return true
	}
	return false
}

// ParseStatus matches case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	for _, candidate := range []Status{StatusPending, StatusApproved, StatusTerminated} {
		if strings.EqualFold(strings.TrimSpace(raw), string(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

type Employee struct {
	ID               int64      `json:"id"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	Position         string     `json:"position,omitempty"`
	Address          string     `json:"address,omitempty"`
	EmergencyContact string     `json:"emergencyContact,omitempty"`
	EmergencyPhone   string     `json:"emergencyPhone,omitempty"`
	HireDate         *time.Time `json:"hireDate,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	Role             string     `json:"role"`
	Status           Status     `json:"status"`
	PasswordHash     string     `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// IsActive is false only for terminated employees.
func (e Employee) IsActive() bool {
	return e.Status != StatusTerminated
}

func (e Employee) IsApproved() bool {
	return e.Status == StatusApproved
}

func (e Employee) MarshalJSON() ([]byte, error) {
	type alias Employee
	return json.Marshal(struct {
		alias
		FullName   string `json:"fullName"`
		IsActive   bool   `json:"isActive"`
		IsApproved bool   `json:"isApproved"`
	}{
		alias:      alias(e),
		FullName:   e.FullName(),
		IsActive:   e.IsActive(),
		IsApproved: e.IsApproved(),
	})
}

type Filter struct {
	Search   string
	Position string
	Status   Status
}

type Invite struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Email     string     `json:"email,omitempty"`
	Position  string     `json:"position,omitempty"`
	CreatedBy *int64     `json:"createdBy,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	UsedBy    *int64     `json:"usedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (i Invite) IsUsed() bool {
	return i.UsedAt != nil
}

func (i Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

type Registration struct {
	Code      string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}
