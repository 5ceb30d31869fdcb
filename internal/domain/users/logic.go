package users

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const inviteCodeLength = 16

// allowedFrom lists the statuses each target status can be reached from.
var allowedFrom = map[Status][]Status{
	StatusApproved:   {StatusPending},
	StatusTerminated: {StatusPending, StatusApproved},
}

// reactivation is the only path out of Terminated.
var reactivateFrom = []Status{StatusTerminated}

func CanTransition(from, to Status) bool {
	for _, candidate := range allowedFrom[to] {
		if candidate == from {
			return true
		}
	}
	return false
}

func NewInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength]
}

func BuildInviteLink(baseURL, code string) string {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		parsed, _ = url.Parse("http://localhost:8080")
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/register"
	query := parsed.Query()
	query.Set("code", code)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
