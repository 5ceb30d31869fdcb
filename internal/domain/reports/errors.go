package reports

import "errors"

var (
	ErrChecklistNotFound = errors.New("checklist not found")
	ErrAuditNotFound     = errors.New("audit not found")
	ErrInvalidInput      = errors.New("invalid report input")
	ErrUnknownReference  = errors.New("unknown employee or location")
	ErrTooManyReadings   = errors.New("too many chemical readings")
)
