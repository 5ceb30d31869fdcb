package locations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolops/internal/platform/db"
)

type Store struct {
	DB     *pgxpool.Pool
	Sealer Sealer
}

func NewStore(pool *pgxpool.Pool, sealer Sealer) *Store {
	return &Store{DB: pool, Sealer: sealer}
}

const locationColumns = `l.id, l.name, COALESCE(l.address,''), COALESCE(l.city,''), COALESCE(l.state,''), COALESCE(l.zip,''),
    l.country, l.latitude, l.longitude, l.radius_meters, COALESCE(l.pool_type,''), COALESCE(l.pool_size,''),
    l.lockbox_code, l.supervisor_id, COALESCE(s.first_name || ' ' || s.last_name, ''),
    l.depth_feet, l.depth_inches, l.has_wading_pool, l.wading_pool_gallons, l.has_spa, l.spa_gallons,
    COALESCE(l.notes,''), l.is_active, l.created_at, l.updated_at`

const locationFrom = ` FROM job_locations l LEFT JOIN employees s ON s.id = l.supervisor_id`

func (s *Store) scanLocation(row pgx.Row) (JobLocation, error) {
	var loc JobLocation
	var lockbox []byte
	err := row.Scan(&loc.ID, &loc.Name, &loc.Address, &loc.City, &loc.State, &loc.Zip,
		&loc.Country, &loc.Latitude, &loc.Longitude, &loc.RadiusMeters, &loc.PoolType, &loc.PoolSize,
		&lockbox, &loc.SupervisorID, &loc.SupervisorName,
		&loc.DepthFeet, &loc.DepthInches, &loc.HasWadingPool, &loc.WadingPoolGallons, &loc.HasSpa, &loc.SpaGallons,
		&loc.Notes, &loc.IsActive, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return JobLocation{}, err
	}
	if s.Sealer != nil && len(lockbox) > 0 {
		code, err := s.Sealer.DecryptString(lockbox)
		if err != nil {
			return JobLocation{}, fmt.Errorf("decrypt lockbox for location %d: %w", loc.ID, err)
		}
		loc.LockboxCode = code
	}
	loc.Contacts = []Contact{}
	return loc, nil
}

func (s *Store) sealLockbox(code string) ([]byte, error) {
	if code == "" {
		return nil, nil
	}
	if s.Sealer == nil {
		return []byte(code), nil
	}
	return s.Sealer.EncryptString(code)
}

func (s *Store) Create(ctx context.Context, loc JobLocation) (int64, error) {
	lockbox, err := s.sealLockbox(loc.LockboxCode)
	if err != nil {
		return 0, err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
    INSERT INTO job_locations (name, address, city, state, zip, country, latitude, longitude, radius_meters,
        pool_type, pool_size, lockbox_code, supervisor_id, depth_feet, depth_inches,
        has_wading_pool, wading_pool_gallons, has_spa, spa_gallons, notes, is_active)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
    RETURNING id
  `, loc.Name, nullIfEmpty(loc.Address), nullIfEmpty(loc.City), nullIfEmpty(loc.State), nullIfEmpty(loc.Zip),
		loc.Country, loc.Latitude, loc.Longitude, loc.RadiusMeters,
		nullIfEmpty(loc.PoolType), nullIfEmpty(loc.PoolSize), lockbox, loc.SupervisorID, loc.DepthFeet, loc.DepthInches,
		loc.HasWadingPool, loc.WadingPoolGallons, loc.HasSpa, loc.SpaGallons, nullIfEmpty(loc.Notes), loc.IsActive).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrUnknownSupervisor
	}
	if err != nil {
		return 0, err
	}

	if err := insertContacts(ctx, tx, id, loc.Contacts); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id int64) (JobLocation, error) {
	loc, err := s.scanLocation(s.DB.QueryRow(ctx, `SELECT `+locationColumns+locationFrom+` WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return JobLocation{}, ErrNotFound
	}
	if err != nil {
		return JobLocation{}, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(phone,''), COALESCE(email,''), COALESCE(role,''), is_primary
    FROM location_contacts
    WHERE location_id = $1
    ORDER BY is_primary DESC, id
  `, id)
	if err != nil {
		return JobLocation{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Role, &c.IsPrimary); err != nil {
			return JobLocation{}, err
		}
		loc.Contacts = append(loc.Contacts, c)
	}
	return loc, rows.Err()
}

func (s *Store) List(ctx context.Context, filter Filter) ([]JobLocation, error) {
	query := `SELECT ` + locationColumns + locationFrom + ` WHERE 1=1`
	var args []any
	if filter.ActiveOnly {
		query += " AND l.is_active"
	}
	if filter.SupervisorID > 0 {
		args = append(args, filter.SupervisorID)
		query += fmt.Sprintf(" AND l.supervisor_id = $%d", len(args))
	}
	query += " ORDER BY l.name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobLocation
	for rows.Next() {
		loc, err := s.scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Update rewrites the location row and replaces its contacts wholesale.
func (s *Store) Update(ctx context.Context, loc JobLocation) error {
	lockbox, err := s.sealLockbox(loc.LockboxCode)
	if err != nil {
		return err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmd, err := tx.Exec(ctx, `
    UPDATE job_locations
    SET name = $2, address = $3, city = $4, state = $5, zip = $6, country = $7, latitude = $8, longitude = $9,
        radius_meters = $10, pool_type = $11, pool_size = $12, lockbox_code = $13, supervisor_id = $14,
        depth_feet = $15, depth_inches = $16, has_wading_pool = $17, wading_pool_gallons = $18,
        has_spa = $19, spa_gallons = $20, notes = $21, is_active = $22, updated_at = now()
    WHERE id = $1
  `, loc.ID, loc.Name, nullIfEmpty(loc.Address), nullIfEmpty(loc.City), nullIfEmpty(loc.State), nullIfEmpty(loc.Zip),
		loc.Country, loc.Latitude, loc.Longitude, loc.RadiusMeters, nullIfEmpty(loc.PoolType), nullIfEmpty(loc.PoolSize),
		lockbox, loc.SupervisorID, loc.DepthFeet, loc.DepthInches, loc.HasWadingPool, loc.WadingPoolGallons,
		loc.HasSpa, loc.SpaGallons, nullIfEmpty(loc.Notes), loc.IsActive)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownSupervisor
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM location_contacts WHERE location_id = $1`, loc.ID); err != nil {
		return err
	}
	if err := insertContacts(ctx, tx, loc.ID, loc.Contacts); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertContacts(ctx context.Context, tx pgx.Tx, locationID int64, contacts []Contact) error {
	for _, c := range contacts {
		if _, err := tx.Exec(ctx, `
      INSERT INTO location_contacts (location_id, name, phone, email, role, is_primary)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, locationID, c.Name, nullIfEmpty(c.Phone), nullIfEmpty(c.Email), nullIfEmpty(c.Role), c.IsPrimary); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := s.DB.Exec(ctx, `UPDATE job_locations SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetSupervisor(ctx context.Context, id int64, supervisorID *int64) error {
	cmd, err := s.DB.Exec(ctx, `UPDATE job_locations SET supervisor_id = $2, updated_at = now() WHERE id = $1`, id, supervisorID)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownSupervisor
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, `DELETE FROM job_locations WHERE id = $1`, id)
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
