package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolops/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const employeeColumns = `id, first_name, last_name, email, COALESCE(phone,''), COALESCE(position,''),
    COALESCE(address,''), COALESCE(emergency_contact,''), COALESCE(emergency_phone,''), hire_date,
    COALESCE(notes,''), role, status, COALESCE(password_hash,''), created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	var status string
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.Position,
		&e.Address, &e.EmergencyContact, &e.EmergencyPhone, &e.HireDate,
		&e.Notes, &e.Role, &status, &e.PasswordHash, &e.CreatedAt, &e.UpdatedAt)
	e.Status = Status(status)
	return e, err
}

func (s *Store) Create(ctx context.Context, e Employee) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (first_name, last_name, email, phone, position, address, emergency_contact, emergency_phone, hire_date, notes, role, status, password_hash)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    RETURNING id
  `, e.FirstName, e.LastName, e.Email, nullIfEmpty(e.Phone), nullIfEmpty(e.Position), nullIfEmpty(e.Address),
		nullIfEmpty(e.EmergencyContact), nullIfEmpty(e.EmergencyPhone), e.HireDate, nullIfEmpty(e.Notes),
		e.Role, string(e.Status), nullIfEmpty(e.PasswordHash)).Scan(&id)
	if db.IsUniqueViolation(err, "employees_email_key") {
		return 0, ErrEmailTaken
	}
	return id, err
}

func (s *Store) Get(ctx context.Context, id int64) (Employee, error) {
	e, err := scanEmployee(s.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return e, err
}

func (s *Store) GetByEmail(ctx context.Context, email string) (Employee, error) {
	e, err := scanEmployee(s.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return e, err
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	var args []any
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args))
	}
	if filter.Position != "" {
		args = append(args, filter.Position)
		query += fmt.Sprintf(" AND position = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, e Employee) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $2, last_name = $3, email = $4, phone = $5, position = $6, address = $7,
        emergency_contact = $8, emergency_phone = $9, hire_date = $10, notes = $11, role = $12, updated_at = now()
    WHERE id = $1
  `, e.ID, e.FirstName, e.LastName, e.Email, nullIfEmpty(e.Phone), nullIfEmpty(e.Position), nullIfEmpty(e.Address),
		nullIfEmpty(e.EmergencyContact), nullIfEmpty(e.EmergencyPhone), e.HireDate, nullIfEmpty(e.Notes), e.Role)
	if db.IsUniqueViolation(err, "employees_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id int64, to Status, from []Status) error {
	allowed := make([]string, 0, len(from))
	for _, status := range from {
		allowed = append(allowed, string(status))
	}
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees SET status = $2, updated_at = now()
    WHERE id = $1 AND status = ANY($3)
  `, id, string(to), allowed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (s *Store) SetPosition(ctx context.Context, id int64, position string) error {
	cmd, err := s.DB.Exec(ctx, `UPDATE employees SET position = $2, updated_at = now() WHERE id = $1`, id, nullIfEmpty(position))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateInvite(ctx context.Context, inv Invite) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO invites (code, email, position, created_by, expires_at)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, inv.Code, nullIfEmpty(inv.Email), nullIfEmpty(inv.Position), inv.CreatedBy, inv.ExpiresAt).Scan(&id)
	return id, err
}

func (s *Store) GetInvite(ctx context.Context, code string) (Invite, error) {
	var inv Invite
	err := s.DB.QueryRow(ctx, `
    SELECT id, code, COALESCE(email,''), COALESCE(position,''), created_by, expires_at, used_at, used_by, created_at
    FROM invites
    WHERE code = $1
  `, code).Scan(&inv.ID, &inv.Code, &inv.Email, &inv.Position, &inv.CreatedBy, &inv.ExpiresAt, &inv.UsedAt, &inv.UsedBy, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, ErrInviteNotFound
	}
	return inv, err
}

// Redeem inserts the employee and consumes the invite in one transaction.
func (s *Store) Redeem(ctx context.Context, code string, e Employee, now time.Time) (int64, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
    INSERT INTO employees (first_name, last_name, email, phone, position, role, status, password_hash)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, e.FirstName, e.LastName, e.Email, nullIfEmpty(e.Phone), nullIfEmpty(e.Position), e.Role, string(e.Status), nullIfEmpty(e.PasswordHash)).Scan(&id)
	if db.IsUniqueViolation(err, "employees_email_key") {
		return 0, ErrEmailTaken
	}
	if err != nil {
		return 0, err
	}

	cmd, err := tx.Exec(ctx, `
    UPDATE invites SET used_at = $2, used_by = $3
    WHERE code = $1 AND used_at IS NULL AND expires_at > $2
  `, code, now, id)
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() == 0 {
		return 0, ErrInviteUsed
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}
