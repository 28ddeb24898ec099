package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultKillTimeout is how long a child process gets between the interrupt
// and the kill signal once the run context is cancelled.
const DefaultKillTimeout = 10 * time.Second

// Interpreter runs commands with an in-process POSIX shell. Builtins run in
// process; everything else is exec'd from PATH.
type Interpreter struct {
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	KillTimeout time.Duration

	// Environ returns the inherited environment. Defaults to os.Environ.
	Environ func() []string

	logger *zap.SugaredLogger
}

// NewInterpreter creates an interpreter writing to stdout and stderr.
func NewInterpreter(logger *zap.SugaredLogger, stdout, stderr io.Writer) *Interpreter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Interpreter{
		Stdin:       os.Stdin,
		Stdout:      stdout,
		Stderr:      stderr,
		KillTimeout: DefaultKillTimeout,
		Environ:     os.Environ,
		logger:      logger,
	}
}

// Run executes cmd with errexit set, so the first failing statement stops
// the script and its status becomes the command's status.
func (i *Interpreter) Run(ctx context.Context, cmd Command) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(cmd.Script), cmd.Name)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", cmd.Name, err)
	}

	dir := cmd.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}

	environ := i.Environ
	if environ == nil {
		environ = os.Environ
	}
	// ListEnviron keeps the last duplicate, so overrides go after the base.
	pairs := append(environ(), EnvPairs(cmd.Env)...)

	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(pairs...)),
		interp.StdIO(i.Stdin, i.Stdout, i.Stderr),
		interp.Params("-e"),
		interp.ExecHandlers(i.execHandler),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	i.logger.Debugw("running command", "command", cmd.Name, "dir", dir)
	err = runner.Run(ctx, prog)
	if err == nil {
		return nil
	}

	var status interp.ExitStatus
	if errors.As(err, &status) {
		return &ExitError{Command: cmd.Name, Code: ExitCode(status)}
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("%s failed: %w", cmd.Name, err)
}

func (i *Interpreter) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	kill := interp.DefaultExecHandler(i.KillTimeout)
	return func(ctx context.Context, args []string) error {
		i.logger.Debugw("exec", "args", args)
		return kill(ctx, args)
	}
}
