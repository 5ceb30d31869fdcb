package schedules

import "errors"

var (
	ErrNotFound         = errors.New("schedule entry not found")
	ErrInvalidInput     = errors.New("invalid schedule entry")
	ErrInvalidRule      = errors.New("invalid recurrence rule")
	ErrUnknownReference = errors.New("unknown employee or location")
)
