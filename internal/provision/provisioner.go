// Package provision runs the build-time half of the bootstrap: OS packages,
// application dependencies, output directories and static-asset collection.
package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/railwayapp/launchpad/internal/filesystems"
	"github.com/railwayapp/launchpad/internal/recipe"
	"github.com/railwayapp/launchpad/internal/shell"
	"go.uber.org/zap"
)

// Step names, in execution order.
const (
	StepOSPackages    = "os-packages"
	StepDependencies  = "dependencies"
	StepDirectories   = "directories"
	StepCollectStatic = "collect-static"
)

// ErrManifestMissing is returned when the dependency manifest is absent.
var ErrManifestMissing = errors.New("dependency manifest not found")

const writeProbe = ".launchpad_write_test"

// Provisioner turns a source tree into a runnable image.
type Provisioner struct {
	recipe     *recipe.Recipe
	filesystem filesystems.FileSystem
	runner     shell.Runner
	sourceDir  string
	logger     *zap.SugaredLogger
}

func NewProvisioner(r *recipe.Recipe, filesystem filesystems.FileSystem, runner shell.Runner, sourceDir string, logger *zap.SugaredLogger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Provisioner{
		recipe:     r,
		filesystem: filesystem,
		runner:     runner,
		sourceDir:  sourceDir,
		logger:     logger,
	}
}

// Run executes every step. The report is returned even when a step fails.
func (p *Provisioner) Run(ctx context.Context) (*Report, error) {
	return Execute(ctx, p.Steps(), p.logger)
}

// Steps returns the build steps in order.
func (p *Provisioner) Steps() []Step {
	r := p.recipe
	return []Step{
		{
			Name:     StepOSPackages,
			Policy:   PolicyFatal,
			Describe: p.describeCommand(r.PackageCommand, len(r.Packages) == 0),
			Run:      p.installPackages,
		},
		{
			Name:     StepDependencies,
			Policy:   PolicyFatal,
			Describe: p.describeCommand(r.InstallCommand, false),
			Run:      p.installDependencies,
		},
		{
			Name:     StepDirectories,
			Policy:   PolicyFatal,
			Describe: "mkdir -p " + strings.Join(p.directoryPaths(), " "),
			Run:      p.createDirectories,
		},
		{
			Name:     StepCollectStatic,
			Policy:   PolicyBestEffort,
			Describe: p.describeCommand(r.StaticCommand, r.StaticCommand == ""),
			Run:      p.collectStatic,
		},
	}
}

func (p *Provisioner) installPackages(ctx context.Context) error {
	if len(p.recipe.Packages) == 0 {
		return fmt.Errorf("%w: no packages listed", ErrSkip)
	}
	return p.runner.Run(ctx, p.command(StepOSPackages, p.recipe.PackageCommand))
}

func (p *Provisioner) installDependencies(ctx context.Context) error {
	manifest := p.resolve(p.recipe.Manifest)
	exists, err := filesystems.Exists(p.filesystem, manifest)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", manifest, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrManifestMissing, manifest)
	}
	return p.runner.Run(ctx, p.command(StepDependencies, p.recipe.InstallCommand))
}

// createDirectories is idempotent; every directory is probed for writes.
func (p *Provisioner) createDirectories(ctx context.Context) error {
	paths := p.directoryPaths()
	if len(paths) == 0 {
		return fmt.Errorf("%w: no directories listed", ErrSkip)
	}

	for _, dir := range paths {
		if err := p.filesystem.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		probe := p.filesystem.Join(dir, writeProbe)
		if err := p.filesystem.WriteFile(probe, []byte("probe"), 0o644); err != nil {
			return fmt.Errorf("directory %s is not writable: %w", dir, err)
		}
		if err := p.filesystem.Remove(probe); err != nil {
			p.logger.Warnw("failed to remove write probe", "path", probe, "error", err)
		}

		p.logger.Infow("directory ready", "path", dir)
	}
	return nil
}

func (p *Provisioner) collectStatic(ctx context.Context) error {
	if p.recipe.StaticCommand == "" {
		return fmt.Errorf("%w: no static command", ErrSkip)
	}
	return p.runner.Run(ctx, p.command(StepCollectStatic, p.recipe.StaticCommand))
}

func (p *Provisioner) command(name, script string) shell.Command {
	return shell.Command{
		Name:   name,
		Script: script,
		Dir:    p.sourceDir,
		Env:    p.recipe.BuildEnv(),
	}
}

func (p *Provisioner) directoryPaths() []string {
	paths := make([]string, 0, len(p.recipe.Directories))
	for _, dir := range p.recipe.Directories {
		paths = append(paths, p.resolve(dir))
	}
	return paths
}

func (p *Provisioner) resolve(name string) string {
	if filepath.IsAbs(name) || p.sourceDir == "" {
		return name
	}
	return p.filesystem.Join(p.sourceDir, name)
}

func (p *Provisioner) describeCommand(script string, skipped bool) string {
	if skipped {
		return "(skipped)"
	}
	rendered, err := shell.Render(script, p.recipe.BuildEnv(), func(string) string { return "" })
	if err != nil {
		return script
	}
	return rendered
}
