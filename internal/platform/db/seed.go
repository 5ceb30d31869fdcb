package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolops/internal/domain/auth"
	"poolops/internal/platform/config"
)

// Seed bootstraps the first administrator from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD. It is a no-op when either is blank or the email
// already belongs to an employee.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	_, err := ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	return err
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return false, nil
	}

	var id int64
	err := pool.QueryRow(ctx, "SELECT id FROM employees WHERE lower(email) = lower($1)", email).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO employees (first_name, last_name, email, role, status, password_hash)
		VALUES ('System', 'Administrator', $1, $2, 'Approved', $3)`,
		email, auth.RoleAdmin, hash)
	if err != nil {
		if IsUniqueViolation(err, "employees_email_key") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
