// Package server runs the application server as the terminal bootstrap phase.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/railwayapp/launchpad/internal/recipe"
	"github.com/railwayapp/launchpad/internal/shell"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProcessServer runs the recipe's serve command bound to a listen address.
type ProcessServer struct {
	runner shell.Runner
	recipe *recipe.Recipe
	dir    string
	logger *zap.SugaredLogger

	// Signals stop the server. Defaults to SIGINT and SIGTERM.
	Signals []os.Signal

	// PollInterval is how often the listen port is dialed until the server
	// accepts connections.
	PollInterval time.Duration

	// OnReady is called once the listen port accepts connections.
	OnReady func(addr string)
}

func NewProcessServer(runner shell.Runner, r *recipe.Recipe, dir string, logger *zap.SugaredLogger) *ProcessServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ProcessServer{
		runner:       runner,
		recipe:       r,
		dir:          dir,
		logger:       logger,
		Signals:      []os.Signal{os.Interrupt, syscall.SIGTERM},
		PollInterval: 250 * time.Millisecond,
	}
}

// Serve runs the serve command until it exits. A shutdown signal or the
// cancellation of ctx stops the command and counts as a clean exit.
func (s *ProcessServer) Serve(ctx context.Context, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}

	cmd := shell.Command{
		Name:   "serve",
		Script: s.recipe.ServeCommand,
		Dir:    s.dir,
		Env:    s.recipe.ServeEnv(host, port),
	}

	sigCtx, stop := signal.NotifyContext(ctx, s.Signals...)
	defer stop()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		s.logger.Infow("starting server", "addr", addr)
		err := s.runner.Run(gctx, cmd)
		if sigCtx.Err() != nil {
			s.logger.Infow("shutting down server", "reason", context.Cause(sigCtx))
		}
		return err
	})
	g.Go(func() error {
		s.waitReady(gctx, dialAddr(host, portStr))
		return nil
	})

	err = g.Wait()
	if sigCtx.Err() != nil {
		if err != nil {
			s.logger.Debugw("server stopped after shutdown", "error", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	s.logger.Warnw("server exited")
	return nil
}

// waitReady dials addr until it accepts a connection or ctx is done.
func (s *ProcessServer) waitReady(ctx context.Context, addr string) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	dialer := net.Dialer{Timeout: interval}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			s.logger.Infow("server accepting connections", "addr", addr)
			if s.OnReady != nil {
				s.OnReady(addr)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// dialAddr is where a server listening on host:port can be reached locally.
func dialAddr(host, port string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
