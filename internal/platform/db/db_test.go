package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_more.sql": {Data: []byte("SELECT 1")},
		"migrations/0001_init.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":     {Data: []byte("docs")},
	}
	names, err := migrationNames(fsys, "migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_more.sql"}, names)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	names, err := migrationNames(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])

	body, err := migrationFiles.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "clock_records_one_open_idx")
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "clock_records_one_open_idx"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "clock_records_one_open_idx"))
	assert.False(t, IsUniqueViolation(err, "employees_email_key"))
	assert.False(t, IsUniqueViolation(fmt.Errorf("plain"), ""))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsCheckViolation(&pgconn.PgError{Code: "23503"}))
}

func TestMigrateIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = Migrate(ctx, pool)
	require.NoError(t, err)

	again, err := Migrate(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, again, "second run applies nothing")
}

func TestSeedSkipsWithoutCredentials(t *testing.T) {
	created, err := ensureAdminUser(context.Background(), nil, " ", "secret")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = ensureAdminUser(context.Background(), nil, "admin@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSeedIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = Migrate(ctx, pool)
	require.NoError(t, err)

	email := fmt.Sprintf("seed-%d@example.com", os.Getpid())
	created, err := ensureAdminUser(ctx, pool, email, "change-me-now")
	require.NoError(t, err)
	assert.True(t, created)
	defer pool.Exec(ctx, "DELETE FROM employees WHERE lower(email) = lower($1)", email)

	created, err = ensureAdminUser(ctx, pool, strings.ToUpper(email), "change-me-now")
	require.NoError(t, err)
	assert.False(t, created, "existing email is left alone")

	var role, status string
	require.NoError(t, pool.QueryRow(ctx, "SELECT role, status FROM employees WHERE lower(email) = lower($1)", email).Scan(&role, &status))
	assert.Equal(t, "admin", role)
	assert.Equal(t, "Approved", status)
}
