package migrations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/railwayapp/launchpad/internal/config"
	"github.com/railwayapp/launchpad/internal/migrations"
	"github.com/railwayapp/launchpad/internal/recipe"
	"github.com/railwayapp/launchpad/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	ran []shell.Command
	err error
}

func (r *recordingRunner) Run(ctx context.Context, cmd shell.Command) error {
	r.ran = append(r.ran, cmd)
	return r.err
}

func runtimeConfig(t *testing.T, vars map[string]string) *config.RuntimeConfig {
	t.Helper()
	cfg, err := config.New(vars, recipe.Default())
	require.NoError(t, err)
	return cfg
}

func TestNew_Command(t *testing.T) {
	runner := &recordingRunner{}
	m, err := migrations.New(recipe.Default(), runtimeConfig(t, nil), runner, "/app", nil)
	require.NoError(t, err)
	require.IsType(t, &migrations.CommandMigrator{}, m)

	require.NoError(t, m.Migrate(context.Background()))
	require.Len(t, runner.ran, 1)
	assert.Equal(t, "migrate", runner.ran[0].Name)
	assert.Equal(t, "python manage.py migrate --noinput", runner.ran[0].Script)
	assert.Equal(t, "/app", runner.ran[0].Dir)
}

func TestNew_CommandFailurePropagates(t *testing.T) {
	runner := &recordingRunner{err: &shell.ExitError{Command: "migrate", Code: 4}}
	m, err := migrations.New(recipe.Default(), runtimeConfig(t, nil), runner, "", nil)
	require.NoError(t, err)

	err = m.Migrate(context.Background())
	assert.Equal(t, shell.ExitCode(4), shell.CodeOf(err))
}

func TestNew_Source(t *testing.T) {
	r := recipe.Default()
	r.Migrate.Source = "file://migrations"

	m, err := migrations.New(r, runtimeConfig(t, map[string]string{"DB_NAME": "app"}), &recordingRunner{}, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &migrations.SQLMigrator{}, m)
}

func TestNew_SourceWithoutDatabase(t *testing.T) {
	r := recipe.Default()
	r.Migrate.Source = "file://migrations"

	_, err := migrations.New(r, runtimeConfig(t, nil), &recordingRunner{}, "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrNoDatabase))
}

func TestNew_NotConfigured(t *testing.T) {
	r := recipe.Default()
	r.Migrate = recipe.Migration{}

	_, err := migrations.New(r, runtimeConfig(t, nil), &recordingRunner{}, "", nil)
	assert.True(t, errors.Is(err, migrations.ErrNotConfigured))
}

func TestSQLDriver(t *testing.T) {
	tests := []struct {
		url    string
		driver string
		dsn    string
		ok     bool
	}{
		{"postgres://u:p@db:5432/app?sslmode=disable", "postgres", "postgres://u:p@db:5432/app?sslmode=disable", true},
		{"postgresql://db/app", "postgres", "postgresql://db/app", true},
		{"sqlite:///tmp/app.db", "sqlite", "/tmp/app.db", true},
		{"mysql://db/app", "", "", false},
		{"app.db", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := migrations.SQLDriver(tt.url)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://django:xxxxx@db:5432/app", migrations.Redact("postgres://django:secret@db:5432/app"))
	assert.Equal(t, "sqlite:///tmp/app.db", migrations.Redact("sqlite:///tmp/app.db"))
}
