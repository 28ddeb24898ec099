package migrations_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/railwayapp/launchpad/internal/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestSQLMigrator_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectClose()

	m := migrations.NewSQLMigrator("file://migrations", "postgres://u:p@db/app", nil)
	var opened string
	m.OpenDB = func(driver, dsn string) (*sql.DB, error) {
		opened = driver
		return db, nil
	}

	require.NoError(t, m.Ping(context.Background()))
	assert.Equal(t, "postgres", opened)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMigrator_UnreachableDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	m := migrations.NewSQLMigrator("file://migrations", "postgres://u:p@db/app", nil)
	m.OpenDB = func(driver, dsn string) (*sql.DB, error) { return db, nil }

	err = m.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func writeMigrations(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"1_create_accounts.up.sql":   "CREATE TABLE accounts (id INTEGER PRIMARY KEY, email TEXT NOT NULL);",
		"1_create_accounts.down.sql": "DROP TABLE accounts;",
		"2_create_tasks.up.sql":      "CREATE TABLE tasks (id INTEGER PRIMARY KEY, title TEXT NOT NULL);",
		"2_create_tasks.down.sql":    "DROP TABLE tasks;",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestSQLMigrator_SQLite(t *testing.T) {
	source := "file://" + writeMigrations(t)
	dbPath := filepath.Join(t.TempDir(), "app.db")

	m := migrations.NewSQLMigrator(source, "sqlite://"+dbPath, nil)
	require.NoError(t, m.Migrate(context.Background()))

	// second run has nothing to apply
	require.NoError(t, m.Migrate(context.Background()))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSQLMigrator_BrokenMigration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_broken.up.sql"), []byte("CREATE TABLE ("), 0o644))

	m := migrations.NewSQLMigrator("file://"+dir, "sqlite://"+filepath.Join(t.TempDir(), "app.db"), nil)
	assert.Error(t, m.Migrate(context.Background()))
}

func TestSQLMigrator_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("skipping integration test: docker provider not available")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "app",
			"POSTGRES_USER":     "django",
			"POSTGRES_PASSWORD": "django",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	databaseURL := fmt.Sprintf("postgres://django:django@%s:%s/app?sslmode=disable", host, port.Port())
	m := migrations.NewSQLMigrator("file://"+writeMigrations(t), databaseURL, nil)
	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Migrate(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)
	defer db.Close()

	var exists bool
	require.NoError(t, db.QueryRow("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'accounts')").Scan(&exists))
	assert.True(t, exists)
}

func dockerAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return provider.Health(ctx) == nil
}
