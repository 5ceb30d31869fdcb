package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"poolops/internal/platform/db"
)

const openRecordIndex = "clock_records_one_open_idx"

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const recordColumns = `c.id, c.employee_id, COALESCE(e.first_name || ' ' || e.last_name, ''), c.location_id, COALESCE(l.name, ''),
    c.schedule_id, c.clock_in_time, c.clock_in_lat, c.clock_in_lng, c.clock_out_time, c.clock_out_lat, c.clock_out_lng,
    c.total_hours, COALESCE(c.jobsite_notes, ''), c.is_late, c.late_minutes, c.created_at, c.updated_at`

const recordFrom = ` FROM clock_records c
    LEFT JOIN employees e ON e.id = c.employee_id
    LEFT JOIN job_locations l ON l.id = c.location_id`

func scanRecord(row pgx.Row) (ClockRecord, error) {
	var rec ClockRecord
	var inLat, inLng, outLat, outLng *decimal.Decimal
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.LocationID, &rec.LocationName,
		&rec.ScheduleID, &rec.ClockInTime, &inLat, &inLng, &rec.ClockOutTime, &outLat, &outLng,
		&rec.TotalHours, &rec.JobsiteNotes, &rec.IsLate, &rec.LateMinutes, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return ClockRecord{}, err
	}
	rec.EmployeeName = strings.TrimSpace(rec.EmployeeName)
	rec.ClockInTime = rec.ClockInTime.UTC()
	if rec.ClockOutTime != nil {
		out := rec.ClockOutTime.UTC()
		rec.ClockOutTime = &out
	}
	rec.ClockInLocation = coordinate(inLat, inLng)
	rec.ClockOutLocation = coordinate(outLat, outLng)
	return rec, nil
}

func coordinate(lat, lng *decimal.Decimal) *Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	return &Coordinate{Latitude: *lat, Longitude: *lng}
}

func split(c *Coordinate) (any, any) {
	if c == nil {
		return nil, nil
	}
	return c.Latitude, c.Longitude
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, openRecordIndex):
		return ErrAlreadyClockedIn
	case db.IsCheckViolation(err):
		return ErrInvalidTimeRange
	case db.IsForeignKeyViolation(err):
		return ErrInvalidInput
	default:
		return err
	}
}

func (s *Store) InsertOpen(ctx context.Context, rec ClockRecord) (int64, error) {
	lat, lng := split(rec.ClockInLocation)
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO clock_records (employee_id, location_id, schedule_id, clock_in_time, clock_in_lat, clock_in_lng,
        jobsite_notes, is_late, late_minutes)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, rec.EmployeeID, rec.LocationID, rec.ScheduleID, rec.ClockInTime, lat, lng,
		nullIfEmpty(rec.JobsiteNotes), rec.IsLate, rec.LateMinutes).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id int64) (ClockRecord, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `SELECT `+recordColumns+recordFrom+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ClockRecord{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) Close(ctx context.Context, id int64, out time.Time, coord *Coordinate, hours decimal.Decimal) error {
	lat, lng := split(coord)
	cmd, err := s.DB.Exec(ctx, `
    UPDATE clock_records
    SET clock_out_time = $2, clock_out_lat = $3, clock_out_lng = $4, total_hours = $5, updated_at = now()
    WHERE id = $1 AND clock_out_time IS NULL
  `, id, out, lat, lng, hours)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clock_records WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAlreadyClockedOut
	}
	return ErrRecordNotFound
}

func (s *Store) Update(ctx context.Context, rec ClockRecord) error {
	outLat, outLng := split(rec.ClockOutLocation)
	cmd, err := s.DB.Exec(ctx, `
    UPDATE clock_records
    SET location_id = $2, clock_in_time = $3, clock_out_time = $4, clock_out_lat = $5, clock_out_lng = $6,
        total_hours = $7, updated_at = now()
    WHERE id = $1
  `, rec.ID, rec.LocationID, rec.ClockInTime, rec.ClockOutTime, outLat, outLng, rec.TotalHours)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListOpen(ctx context.Context) ([]ClockRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+recordFrom+` WHERE c.clock_out_time IS NULL ORDER BY c.clock_in_time`)
}

func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]ClockRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+recordFrom+`
    WHERE c.clock_in_time >= $1 AND c.clock_in_time < $2
    ORDER BY c.clock_in_time`, from, to)
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]ClockRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+recordFrom+`
    WHERE c.employee_id = $1 AND c.clock_in_time >= $2 AND c.clock_in_time < $3
    ORDER BY c.clock_in_time DESC`, employeeID, from, to)
}

func (s *Store) SumClosedHours(ctx context.Context, employeeID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(total_hours), 0)
    FROM clock_records
    WHERE employee_id = $1 AND clock_out_time IS NOT NULL AND clock_in_time >= $2 AND clock_in_time < $3
  `, employeeID, from, to).Scan(&total)
	return total, err
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]ClockRecord, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ClockRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
