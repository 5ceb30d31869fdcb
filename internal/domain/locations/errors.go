package locations

import "errors"

var (
	ErrNotFound          = errors.New("location not found")
	ErrInvalidInput      = errors.New("invalid location data")
	ErrUnknownSupervisor = errors.New("supervisor not found")
	ErrInUse             = errors.New("location has recorded activity")
)
