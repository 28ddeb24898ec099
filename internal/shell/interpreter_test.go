package shell_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/railwayapp/launchpad/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterpreter(t *testing.T) (*shell.Interpreter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	interp := shell.NewInterpreter(nil, &out, &out)
	interp.Stdin = nil
	interp.Environ = func() []string { return []string{"PORT=1", "KEEP=base"} }
	return interp, &out
}

func TestInterpreter_Success(t *testing.T) {
	interp, out := newTestInterpreter(t)

	err := interp.Run(context.Background(), shell.Command{Name: "greet", Script: "echo hello", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())
}

func TestInterpreter_ExitStatusPropagates(t *testing.T) {
	interp, _ := newTestInterpreter(t)

	err := interp.Run(context.Background(), shell.Command{Name: "migrate", Script: "exit 3", Dir: t.TempDir()})
	require.Error(t, err)

	var exitErr *shell.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "migrate", exitErr.Command)
	assert.Equal(t, shell.ExitCode(3), exitErr.Code)
	assert.Equal(t, shell.ExitCode(3), shell.CodeOf(err))
}

func TestInterpreter_StopsAtFirstFailure(t *testing.T) {
	interp, out := newTestInterpreter(t)

	err := interp.Run(context.Background(), shell.Command{Name: "steps", Script: "echo one\nfalse\necho two", Dir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, shell.ExitCode(1), shell.CodeOf(err))
	assert.Equal(t, "one\n", out.String())
}

func TestInterpreter_EnvOverridesInherited(t *testing.T) {
	interp, out := newTestInterpreter(t)

	err := interp.Run(context.Background(), shell.Command{
		Name:   "env",
		Script: `echo "$PORT $KEEP $HOST"`,
		Dir:    t.TempDir(),
		Env:    map[string]string{"PORT": "9000", "HOST": "0.0.0.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "9000 base 0.0.0.0\n", out.String())
}

func TestInterpreter_ParseError(t *testing.T) {
	interp, _ := newTestInterpreter(t)

	err := interp.Run(context.Background(), shell.Command{Name: "broken", Script: "if then", Dir: t.TempDir()})
	require.Error(t, err)

	var exitErr *shell.ExitError
	assert.False(t, errors.As(err, &exitErr))
	assert.Equal(t, shell.ExitCode(1), shell.CodeOf(err))
}

func TestInterpreter_MissingProgram(t *testing.T) {
	interp, _ := newTestInterpreter(t)
	interp.Environ = func() []string { return []string{"PATH=" + t.TempDir()} }

	err := interp.Run(context.Background(), shell.Command{Name: "missing", Script: "launchpad-no-such-binary", Dir: t.TempDir()})
	assert.Equal(t, shell.ExitCode(127), shell.CodeOf(err))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, shell.Validate("pip install -r $MANIFEST"))
	assert.Error(t, shell.Validate("   "))
	assert.Error(t, shell.Validate("echo 'unterminated"))
}

func TestRender(t *testing.T) {
	got, err := shell.Render("pip install -r $MANIFEST", map[string]string{"MANIFEST": "requirements.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "pip install -r requirements.txt", got)

	got, err = shell.Render("daphne -b $HOST -p ${PORT}", nil, func(name string) string {
		return map[string]string{"HOST": "0.0.0.0", "PORT": "8000"}[name]
	})
	require.NoError(t, err)
	assert.Equal(t, "daphne -b 0.0.0.0 -p 8000", got)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, shell.ExitCode(0), shell.CodeOf(nil))
	assert.Equal(t, shell.ExitCode(1), shell.CodeOf(errors.New("boom")))
	assert.True(t, shell.CodeOf(nil).IsSuccess())
	assert.Equal(t, "42", shell.ExitCode(42).String())
}
