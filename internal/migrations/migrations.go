// Package migrations implements the migration-apply operation, either by
// running the application's own migrate command or by applying a directory
// of SQL migrations in process.
package migrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/railwayapp/launchpad/internal/config"
	"github.com/railwayapp/launchpad/internal/recipe"
	"github.com/railwayapp/launchpad/internal/shell"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when the recipe names no migration.
var ErrNotConfigured = errors.New("migrations not configured")

// Migrator applies pending schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// CommandMigrator runs a shell command that applies migrations.
type CommandMigrator struct {
	runner  shell.Runner
	command shell.Command
}

func NewCommandMigrator(runner shell.Runner, command shell.Command) *CommandMigrator {
	if command.Name == "" {
		command.Name = "migrate"
	}
	return &CommandMigrator{runner: runner, command: command}
}

func (m *CommandMigrator) Migrate(ctx context.Context) error {
	return m.runner.Run(ctx, m.command)
}

// New picks the migrator the recipe asks for.
func New(r *recipe.Recipe, cfg *config.RuntimeConfig, runner shell.Runner, dir string, logger *zap.SugaredLogger) (Migrator, error) {
	switch r.Migrate.Kind() {
	case recipe.MigrationCommand:
		return NewCommandMigrator(runner, shell.Command{
			Name:   "migrate",
			Script: r.Migrate.Command,
			Dir:    dir,
		}), nil

	case recipe.MigrationSource:
		databaseURL := r.Migrate.DatabaseURL
		if databaseURL == "" {
			var err error
			if databaseURL, err = cfg.DatabaseURL(); err != nil {
				return nil, fmt.Errorf("failed to resolve database url: %w", err)
			}
		}
		return NewSQLMigrator(r.Migrate.Source, databaseURL, logger), nil

	default:
		return nil, ErrNotConfigured
	}
}
