package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultPingTimeout = 10 * time.Second

// SQLMigrator applies "up" migrations from a source URL to a database.
type SQLMigrator struct {
	sourceURL   string
	databaseURL string
	logger      *zap.SugaredLogger

	PingTimeout time.Duration
	// OpenDB opens the connection used for the reachability check.
	OpenDB func(driver, dsn string) (*sql.DB, error)
}

func NewSQLMigrator(sourceURL, databaseURL string, logger *zap.SugaredLogger) *SQLMigrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SQLMigrator{
		sourceURL:   sourceURL,
		databaseURL: databaseURL,
		logger:      logger,
		PingTimeout: defaultPingTimeout,
		OpenDB:      sql.Open,
	}
}

// Migrate checks the database is reachable, then applies every pending
// migration. Having nothing to apply is success.
func (m *SQLMigrator) Migrate(ctx context.Context) error {
	if err := m.Ping(ctx); err != nil {
		return err
	}

	mg, err := migrate.New(m.sourceURL, m.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := mg.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			m.logger.Warnw("failed to close migration handles", "error", err)
		}
	}()
	mg.Log = &migrateLogger{logger: m.logger}

	stop := context.AfterFunc(ctx, func() {
		mg.GracefulStop <- true
	})
	defer stop()

	err = mg.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Infow("database schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("migrations interrupted: %w", err)
	}

	if version, dirty, verr := mg.Version(); verr == nil {
		m.logger.Infow("migrations applied", "version", version, "dirty", dirty)
	}
	return nil
}

// Ping opens the database with its sql driver and pings it.
func (m *SQLMigrator) Ping(ctx context.Context) error {
	driver, dsn, err := SQLDriver(m.databaseURL)
	if err != nil {
		return err
	}

	db, err := m.OpenDB(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, m.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database is unreachable: %w", err)
	}
	return nil
}

// SQLDriver maps a migration database URL to a database/sql driver name and
// data source name.
func SQLDriver(databaseURL string) (driver, dsn string, err error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database url: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", databaseURL, nil
	case "sqlite":
		return "sqlite", strings.TrimPrefix(databaseURL, u.Scheme+"://"), nil
	case "":
		return "", "", fmt.Errorf("invalid database url: missing scheme")
	default:
		return "", "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// Redact hides the password of a database URL for logging.
func Redact(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

type migrateLogger struct {
	logger *zap.SugaredLogger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(strings.TrimSuffix(format, "\n"), v...)
}

func (l *migrateLogger) Verbose() bool { return false }
