package bootstrap

import (
	"context"
	"fmt"

	"github.com/railwayapp/launchpad/internal/config"
	"go.uber.org/zap"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseMigrating Phase = "migrating"
	PhaseServing   Phase = "serving"
)

// Migrator applies pending schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Server runs the application until it exits.
type Server interface {
	Serve(ctx context.Context, addr string) error
}

// PhaseError reports which phase ended the run.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Bootstrapper applies migrations, then serves. It is not safe for
// concurrent use.
type Bootstrapper struct {
	migrator Migrator
	server   Server
	cfg      *config.RuntimeConfig
	logger   *zap.SugaredLogger
	phase    Phase
}

func New(migrator Migrator, server Server, cfg *config.RuntimeConfig, logger *zap.SugaredLogger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bootstrapper{
		migrator: migrator,
		server:   server,
		cfg:      cfg,
		logger:   logger,
		phase:    PhaseIdle,
	}
}

// Phase returns the phase the last Run reached.
func (b *Bootstrapper) Phase() Phase { return b.phase }

// Run migrates and then serves. It returns when the server exits.
func (b *Bootstrapper) Run(ctx context.Context) error {
	b.phase = PhaseMigrating
	b.logger.Infow("applying migrations")
	if err := b.migrator.Migrate(ctx); err != nil {
		b.logger.Errorw("migrations failed, not starting server", "error", err)
		return &PhaseError{Phase: PhaseMigrating, Err: err}
	}
	b.logger.Infow("migrations complete")

	b.phase = PhaseServing
	addr := b.cfg.Addr()
	if b.cfg.PortIsDefault() {
		b.logger.Infow("port not set, using default", "variable", b.cfg.PortVariable(), "port", b.cfg.Port())
	}
	if err := b.server.Serve(ctx, addr); err != nil {
		return &PhaseError{Phase: PhaseServing, Err: err}
	}
	return nil
}
