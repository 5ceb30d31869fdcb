package schedules

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

const entryColumns = `s.id, s.employee_id, COALESCE(e.first_name || ' ' || e.last_name, ''), s.location_id, COALESCE(l.name, ''),
    s.starts_at, s.ends_at, s.recurrence, s.repeat_until, COALESCE(s.notes, ''), s.created_at`

const entryFrom = ` FROM schedule_entries s
    LEFT JOIN employees e ON e.id = s.employee_id
    LEFT JOIN job_locations l ON l.id = s.location_id`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.LocationID, &e.LocationName,
		&e.StartsAt, &e.EndsAt, &e.Recurrence, &e.RepeatUntil, &e.Notes, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.EndsAt.UTC()
	return e, nil
}

func (s *Store) Create(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO schedule_entries (employee_id, location_id, starts_at, ends_at, recurrence, repeat_until, notes)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, e.EmployeeID, e.LocationID, e.StartsAt, e.EndsAt, e.Recurrence, e.RepeatUntil, nullIfEmpty(e.Notes)).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrUnknownReference
	}
	return id, err
}

func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	e, err := scanEntry(s.DB.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE s.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT ` + entryColumns + entryFrom + ` WHERE 1=1`
	var args []any
	if filter.EmployeeID > 0 {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND s.employee_id = $%d", len(args))
	}
	if filter.LocationID > 0 {
		args = append(args, filter.LocationID)
		query += fmt.Sprintf(" AND s.location_id = $%d", len(args))
	}
	query += " ORDER BY s.starts_at, s.id"
	return s.query(ctx, query, args...)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, `DELETE FROM schedule_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Candidates(ctx context.Context, employeeID, locationID int64, from, to time.Time) ([]Entry, error) {
	clauses := []string{`(
      (s.recurrence = '' AND s.starts_at >= $1 AND s.starts_at < $2)
      OR (s.recurrence <> '' AND s.starts_at < $2 AND (s.repeat_until IS NULL OR s.repeat_until >= $1))
    )`}
	args := []any{from, to}
	if employeeID > 0 {
		args = append(args, employeeID)
		clauses = append(clauses, fmt.Sprintf("s.employee_id = $%d", len(args)))
	}
	if locationID > 0 {
		args = append(args, locationID)
		clauses = append(clauses, fmt.Sprintf("s.location_id = $%d", len(args)))
	}
	query := `SELECT ` + entryColumns + entryFrom + ` WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY s.starts_at, s.id`
	return s.query(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
