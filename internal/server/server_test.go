package server_test

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/railwayapp/launchpad/internal/recipe"
	"github.com/railwayapp/launchpad/internal/server"
	"github.com/railwayapp/launchpad/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	started chan shell.Command
	err     error
	block   bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan shell.Command, 1), block: true}
}

func (r *blockingRunner) Run(ctx context.Context, cmd shell.Command) error {
	r.started <- cmd
	if r.block {
		<-ctx.Done()
		return &shell.ExitError{Command: cmd.Name, Code: 130}
	}
	return r.err
}

func TestServe_ExportsListenAddress(t *testing.T) {
	runner := &blockingRunner{started: make(chan shell.Command, 1)}
	s := server.NewProcessServer(runner, recipe.Default(), "/app", nil)

	require.NoError(t, s.Serve(context.Background(), "0.0.0.0:9000"))

	cmd := <-runner.started
	assert.Equal(t, "serve", cmd.Name)
	assert.Equal(t, "/app", cmd.Dir)
	assert.Equal(t, "daphne -b $HOST -p $PORT main.asgi:application", cmd.Script)
	assert.Equal(t, "0.0.0.0", cmd.Env["HOST"])
	assert.Equal(t, "9000", cmd.Env["PORT"])
	assert.Equal(t, "0.0.0.0:9000", cmd.Env["ADDR"])
}

func TestServe_StartFailurePropagates(t *testing.T) {
	runner := &blockingRunner{
		started: make(chan shell.Command, 1),
		err:     &shell.ExitError{Command: "serve", Code: 127},
	}
	s := server.NewProcessServer(runner, recipe.Default(), "", nil)

	err := s.Serve(context.Background(), "0.0.0.0:8000")
	require.Error(t, err)
	assert.Equal(t, shell.ExitCode(127), shell.CodeOf(err))
}

func TestServe_ContextCancelIsClean(t *testing.T) {
	runner := newBlockingRunner()
	s := server.NewProcessServer(runner, recipe.Default(), "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "0.0.0.0:8000") }()

	<-runner.started
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe_SignalIsClean(t *testing.T) {
	runner := newBlockingRunner()
	s := server.NewProcessServer(runner, recipe.Default(), "", nil)
	s.Signals = []os.Signal{syscall.SIGUSR1}

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), "0.0.0.0:8000") }()

	<-runner.started
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop on signal")
	}
}

func TestServe_InvalidAddress(t *testing.T) {
	s := server.NewProcessServer(newBlockingRunner(), recipe.Default(), "", nil)

	err := s.Serve(context.Background(), "no-port")
	require.Error(t, err)
	var exitErr *shell.ExitError
	assert.False(t, errors.As(err, &exitErr))
}

// listeningRunner opens the listener the serve command would open.
type listeningRunner struct{}

func (listeningRunner) Run(ctx context.Context, cmd shell.Command) error {
	ln, err := net.Listen("tcp", cmd.Env["ADDR"])
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	<-ctx.Done()
	return &shell.ExitError{Command: cmd.Name, Code: 130}
}

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())
	return port
}

func TestServe_ReportsReadyOnceListening(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := net.JoinHostPort("127.0.0.1", freePort(t))
	s := server.NewProcessServer(listeningRunner{}, recipe.Default(), "", nil)
	s.PollInterval = 20 * time.Millisecond

	ready := make(chan string, 1)
	s.OnReady = func(addr string) {
		ready <- addr
		cancel()
	}

	require.NoError(t, s.Serve(ctx, addr))

	select {
	case got := <-ready:
		assert.Equal(t, addr, got)
	default:
		t.Fatal("server never reported ready")
	}
}

func TestServe_NotReadyWhenNothingListens(t *testing.T) {
	runner := &blockingRunner{started: make(chan shell.Command, 1), err: &shell.ExitError{Command: "serve", Code: 1}}
	s := server.NewProcessServer(runner, recipe.Default(), "", nil)
	s.PollInterval = 20 * time.Millisecond
	s.OnReady = func(string) { t.Error("ready reported without a listener") }

	err := s.Serve(context.Background(), net.JoinHostPort("127.0.0.1", freePort(t)))
	assert.Equal(t, shell.ExitCode(1), shell.CodeOf(err))
}
