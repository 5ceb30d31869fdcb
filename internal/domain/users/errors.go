package users

import "errors"

var (
	ErrNotFound          = errors.New("employee not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrInvalidInput      = errors.New("invalid employee data")
	ErrInUse             = errors.New("employee has recorded activity")
	ErrInviteNotFound    = errors.New("invite not found")
	ErrInviteUsed        = errors.New("invite already used")
	ErrInviteExpired     = errors.New("invite expired")
	ErrInvalidLogin      = errors.New("invalid credentials")
	ErrNotApproved       = errors.New("employee not approved")
)
