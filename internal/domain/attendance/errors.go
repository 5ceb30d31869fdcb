package attendance

import "errors"

var (
	ErrAlreadyClockedIn  = errors.New("employee already has an open clock record")
	ErrAlreadyClockedOut = errors.New("clock record is already closed")
	ErrRecordNotFound    = errors.New("clock record not found")
	ErrInvalidTimeRange  = errors.New("clock-out must be after clock-in")
	ErrInvalidInput      = errors.New("invalid clock input")
)
