package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"poolops/internal/domain/auth"
)

// Mailer delivers invite links.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type InviteSettings struct {
	TTL     time.Duration
	BaseURL string
	From    string
}

type Service struct {
	Store   StoreAPI
	Mailer  Mailer
	Invites InviteSettings
	Now     func() time.Time
}

func NewService(store StoreAPI, mailer Mailer, invites InviteSettings) *Service {
	if invites.TTL <= 0 {
		invites.TTL = 7 * 24 * time.Hour
	}
	return &Service{Store: store, Mailer: mailer, Invites: invites, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) Create(ctx context.Context, e Employee) (Employee, error) {
	if err := prepare(&e); err != nil {
		return Employee{}, err
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if !e.Status.Valid() {
		return Employee{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, e.Status)
	}
	id, err := s.Store.Create(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Employee, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Position = strings.TrimSpace(filter.Position)
	return s.Store.List(ctx, filter)
}

func (s *Service) ListPending(ctx context.Context) ([]Employee, error) {
	return s.Store.List(ctx, Filter{Status: StatusPending})
}

// Update changes profile fields. Status moves only through Approve, Terminate and Reactivate.
func (s *Service) Update(ctx context.Context, e Employee) (Employee, error) {
	if e.ID <= 0 {
		return Employee{}, ErrNotFound
	}
	if err := prepare(&e); err != nil {
		return Employee{}, err
	}
	if err := s.Store.Update(ctx, e); err != nil {
		return Employee{}, err
	}
	return s.Store.Get(ctx, e.ID)
}

func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.Store.SetStatus(ctx, id, StatusApproved, allowedFrom[StatusApproved])
}

func (s *Service) Terminate(ctx context.Context, id int64) error {
	return s.Store.SetStatus(ctx, id, StatusTerminated, allowedFrom[StatusTerminated])
}

func (s *Service) Reactivate(ctx context.Context, id int64) error {
	return s.Store.SetStatus(ctx, id, StatusApproved, reactivateFrom)
}

func (s *Service) AssignPosition(ctx context.Context, id int64, position string) error {
	return s.Store.SetPosition(ctx, id, strings.TrimSpace(position))
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.Store.Delete(ctx, id)
}

// IssueInvite stores a single-use code and mails the registration link when an email is given.
func (s *Service) IssueInvite(ctx context.Context, email, position string, createdBy *int64) (Invite, string, error) {
	inv := Invite{
		Code:      NewInviteCode(),
		Email:     normalizeEmail(email),
		Position:  strings.TrimSpace(position),
		CreatedBy: createdBy,
		ExpiresAt: s.now().Add(s.Invites.TTL),
	}
	id, err := s.Store.CreateInvite(ctx, inv)
	if err != nil {
		return Invite{}, "", err
	}
	inv.ID = id
	inv.CreatedAt = s.now()
	link := BuildInviteLink(s.Invites.BaseURL, inv.Code)

	if inv.Email != "" && s.Mailer != nil {
		body := buildInviteMessage(link, s.Invites.TTL)
		if err := s.Mailer.Send(ctx, s.Invites.From, inv.Email, "You're invited to join the team", body); err != nil {
			slog.Warn("invite email failed", "inviteId", inv.ID, "err", err)
		}
	}
	return inv, link, nil
}

func (s *Service) ValidateInvite(ctx context.Context, code string) (Invite, error) {
	inv, err := s.Store.GetInvite(ctx, strings.TrimSpace(code))
	if err != nil {
		return Invite{}, err
	}
	if inv.IsUsed() {
		return Invite{}, ErrInviteUsed
	}
	if inv.Expired(s.now()) {
		return Invite{}, ErrInviteExpired
	}
	return inv, nil
}

// RedeemInvite registers a Pending technician. An approver must still call Approve.
func (s *Service) RedeemInvite(ctx context.Context, reg Registration) (Employee, error) {
	inv, err := s.ValidateInvite(ctx, reg.Code)
	if err != nil {
		return Employee{}, err
	}
	if len(reg.Password) < 8 {
		return Employee{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	email := normalizeEmail(reg.Email)
	if inv.Email != "" && email != inv.Email {
		return Employee{}, fmt.Errorf("%w: email does not match invite", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return Employee{}, err
	}
	e := Employee{
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		Email:        email,
		Phone:        strings.TrimSpace(reg.Phone),
		Position:     inv.Position,
		Role:         auth.RoleTechnician,
		Status:       StatusPending,
		PasswordHash: hash,
	}
	if err := prepare(&e); err != nil {
		return Employee{}, err
	}
	id, err := s.Store.Redeem(ctx, inv.Code, e, s.now())
	if err != nil {
		return Employee{}, err
	}
	return s.Store.Get(ctx, id)
}

// Authenticate checks credentials for approved employees.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Employee, error) {
	e, err := s.Store.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return Employee{}, ErrInvalidLogin
	}
	if err != nil {
		return Employee{}, err
	}
	if e.PasswordHash == "" || auth.CheckPassword(e.PasswordHash, password) != nil {
		return Employee{}, ErrInvalidLogin
	}
	if !e.IsApproved() {
		return Employee{}, ErrNotApproved
	}
	return e, nil
}

func prepare(e *Employee) error {
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Email = normalizeEmail(e.Email)
	if e.FirstName == "" || e.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if e.Email == "" || !strings.Contains(e.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if e.Role == "" {
		e.Role = auth.RoleTechnician
	}
	if !auth.ValidRole(e.Role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, e.Role)
	}
	return nil
}

func buildInviteMessage(link string, ttl time.Duration) string {
	days := int(ttl.Hours() / 24)
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("Use the link below to create your account:\n\n%s\n\nThe link expires in %d day(s) and can be used once.", link, days)
}
