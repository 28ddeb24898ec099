package provision_test

import (
	"context"
	"errors"
	"testing"

	"github.com/railwayapp/launchpad/internal/filesystems"
	"github.com/railwayapp/launchpad/internal/provision"
	"github.com/railwayapp/launchpad/internal/recipe"
	"github.com/railwayapp/launchpad/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	ran   []shell.Command
	fails map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, cmd shell.Command) error {
	f.ran = append(f.ran, cmd)
	return f.fails[cmd.Name]
}

func (f *fakeRunner) names() []string {
	var names []string
	for _, c := range f.ran {
		names = append(names, c.Name)
	}
	return names
}

func newSourceTree() *filesystems.MemoryFS {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("/app/requirements.txt", []byte("django\ndaphne\n"))
	mfs.AddFile("/app/manage.py", []byte(""))
	return mfs
}

func statuses(report *provision.Report) map[string]provision.Status {
	out := make(map[string]provision.Status)
	for _, s := range report.Steps {
		out[s.Name] = s.Status
	}
	return out
}

func TestProvisioner_AllStepsSucceed(t *testing.T) {
	mfs := newSourceTree()
	runner := &fakeRunner{}
	p := provision.NewProvisioner(recipe.Default(), mfs, runner, "/app", nil)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Completed)

	assert.Equal(t, []string{provision.StepOSPackages, provision.StepDependencies, provision.StepCollectStatic}, runner.names())
	for _, cmd := range runner.ran {
		assert.Equal(t, "/app", cmd.Dir)
		assert.Equal(t, "requirements.txt", cmd.Env["MANIFEST"])
	}
	assert.Equal(t, "build-essential libpq-dev", runner.ran[0].Env["PACKAGES"])

	for _, dir := range []string{"/app/staticfiles", "/app/media"} {
		info, err := mfs.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())

		exists, err := filesystems.Exists(mfs, dir+"/.launchpad_write_test")
		require.NoError(t, err)
		assert.False(t, exists, "write probe must be removed")
	}

	for _, s := range report.Steps {
		assert.Equal(t, provision.StatusOK, s.Status, s.Name)
	}
}

func TestProvisioner_StaticFailureIsSuppressed(t *testing.T) {
	runner := &fakeRunner{fails: map[string]error{
		provision.StepCollectStatic: &shell.ExitError{Command: provision.StepCollectStatic, Code: 1},
	}}
	p := provision.NewProvisioner(recipe.Default(), newSourceTree(), runner, "/app", nil)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Completed)
	assert.Equal(t, []string{provision.StepCollectStatic}, report.Suppressed())

	last := report.Steps[len(report.Steps)-1]
	assert.Equal(t, provision.StatusSuppressed, last.Status)
	assert.Equal(t, shell.ExitCode(1), last.ExitCode)
	assert.NotEmpty(t, last.Error)
}

func TestProvisioner_DependencyFailureIsFatal(t *testing.T) {
	mfs := newSourceTree()
	runner := &fakeRunner{fails: map[string]error{
		provision.StepDependencies: &shell.ExitError{Command: provision.StepDependencies, Code: 2},
	}}
	p := provision.NewProvisioner(recipe.Default(), mfs, runner, "/app", nil)

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.False(t, report.Completed)

	var stepErr *provision.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, provision.StepDependencies, stepErr.Step)
	assert.Equal(t, shell.ExitCode(2), shell.CodeOf(err))

	// later steps never ran
	assert.Equal(t, []string{provision.StepOSPackages, provision.StepDependencies}, runner.names())
	exists, _ := filesystems.Exists(mfs, "/app/staticfiles")
	assert.False(t, exists)
	assert.Equal(t, provision.StatusFailed, statuses(report)[provision.StepDependencies])
}

func TestProvisioner_OSPackageFailureIsFatal(t *testing.T) {
	runner := &fakeRunner{fails: map[string]error{
		provision.StepOSPackages: &shell.ExitError{Command: provision.StepOSPackages, Code: 100},
	}}
	p := provision.NewProvisioner(recipe.Default(), newSourceTree(), runner, "/app", nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, shell.ExitCode(100), shell.CodeOf(err))
	assert.Equal(t, []string{provision.StepOSPackages}, runner.names())
}

func TestProvisioner_MissingManifestIsFatal(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddDir("/app")
	runner := &fakeRunner{}
	p := provision.NewProvisioner(recipe.Default(), mfs, runner, "/app", nil)

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, provision.ErrManifestMissing))
	assert.False(t, report.Completed)
	assert.Equal(t, []string{provision.StepOSPackages}, runner.names())
}

func TestProvisioner_DirectoriesAreIdempotent(t *testing.T) {
	mfs := newSourceTree()
	mfs.AddFile("/app/staticfiles/app.css", []byte("body{}"))
	p := provision.NewProvisioner(recipe.Default(), mfs, &fakeRunner{}, "/app", nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	content, err := mfs.ReadFile("/app/staticfiles/app.css")
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(content))
}

func TestProvisioner_DirectoryBlockedByFile(t *testing.T) {
	mfs := newSourceTree()
	mfs.AddFile("/app/media", []byte("oops"))
	p := provision.NewProvisioner(recipe.Default(), mfs, &fakeRunner{}, "/app", nil)

	_, err := p.Run(context.Background())
	var stepErr *provision.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, provision.StepDirectories, stepErr.Step)
}

func TestProvisioner_EmptyStepsAreSkipped(t *testing.T) {
	r := recipe.Default()
	r.Packages = nil
	r.StaticCommand = ""
	runner := &fakeRunner{}
	p := provision.NewProvisioner(r, newSourceTree(), runner, "/app", nil)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	got := statuses(report)
	assert.Equal(t, provision.StatusSkipped, got[provision.StepOSPackages])
	assert.Equal(t, provision.StatusOK, got[provision.StepDependencies])
	assert.Equal(t, provision.StatusSkipped, got[provision.StepCollectStatic])
	assert.Equal(t, []string{provision.StepDependencies}, runner.names())
}

func TestProvisioner_Steps(t *testing.T) {
	p := provision.NewProvisioner(recipe.Default(), newSourceTree(), &fakeRunner{}, "/app", nil)
	steps := p.Steps()

	require.Len(t, steps, 4)
	assert.Equal(t, provision.PolicyFatal, steps[0].Policy)
	assert.Equal(t, provision.PolicyFatal, steps[1].Policy)
	assert.Equal(t, provision.PolicyFatal, steps[2].Policy)
	assert.Equal(t, provision.PolicyBestEffort, steps[3].Policy)
	assert.Equal(t, "pip install --no-cache-dir -r requirements.txt", steps[1].Describe)
	assert.Equal(t, "mkdir -p /app/staticfiles /app/media", steps[2].Describe)
}

func TestExecute_CancelledContextStopsBestEffort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	steps := []provision.Step{
		{Name: "slow", Policy: provision.PolicyBestEffort, Run: func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		}},
		{Name: "never", Policy: provision.PolicyFatal, Run: func(ctx context.Context) error {
			t.Fatal("must not run")
			return nil
		}},
	}

	report, err := provision.Execute(ctx, steps, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, report.Completed)
}
