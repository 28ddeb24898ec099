package launchpad

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/railwayapp/launchpad/internal/config"
	"github.com/railwayapp/launchpad/internal/filesystems"
	"github.com/railwayapp/launchpad/internal/logging"
	"github.com/railwayapp/launchpad/internal/recipe"
	"github.com/railwayapp/launchpad/internal/shell"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every command needs: the logger, the source tree and the
// shell commands run through.
type app struct {
	settings   Settings
	zlog       *zap.Logger
	logger     *zap.SugaredLogger
	filesystem filesystems.FileSystem
	shell      *shell.Interpreter
	sourceDir  string
}

func newApp(cmd *cobra.Command, args []string) (*app, error) {
	settings := currentSettings()

	zlog, logger, err := logging.New(os.Stderr, logging.Options{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	sourcePath := "."
	if len(args) > 0 {
		sourcePath = args[0]
	}
	filesystem, err := filesystems.NewFileSystem(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem: %w", err)
	}

	sourceDir, err := filepath.Abs(filesystems.GetBasePath(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", sourcePath, err)
	}
	// A file path selects its directory.
	if info, err := filesystem.Stat(sourceDir); err == nil && !info.IsDir() {
		sourceDir = filepath.Dir(sourceDir)
	}

	interpreter := shell.NewInterpreter(logger.Named("shell"), cmd.OutOrStdout(), cmd.ErrOrStderr())
	interpreter.KillTimeout = settings.KillTimeout

	return &app{
		settings:   settings,
		zlog:       zlog,
		logger:     logger,
		filesystem: filesystem,
		shell:      interpreter,
		sourceDir:  sourceDir,
	}, nil
}

func (a *app) close() {
	_ = a.zlog.Sync()
}

// loadRecipe reads the recipe named in the settings, or the one in the
// source tree, or the default one, and validates it.
func (a *app) loadRecipe() (*recipe.Recipe, error) {
	var (
		r    *recipe.Recipe
		path string
		err  error
	)
	if a.settings.Recipe != "" {
		path = a.settings.Recipe
		r, err = recipe.Load(a.filesystem, path)
	} else {
		r, path, err = recipe.LoadDir(a.filesystem, a.sourceDir)
	}
	if err != nil {
		return nil, err
	}

	if path == "" {
		a.logger.Infow("using default recipe", "name", r.Name)
	} else {
		a.logger.Infow("using recipe", "path", path, "name", r.Name)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// runtimeConfig reads the environment once, dotenv files included, and makes
// it the environment of every command run afterwards.
func (a *app) runtimeConfig(r *recipe.Recipe) (*config.RuntimeConfig, error) {
	env := config.NewEnvironment(a.filesystem, os.Environ)
	vars, loaded, err := env.Load(filepath.Join(a.sourceDir, config.DefaultDotEnv), a.settings.EnvFiles)
	if err != nil {
		return nil, err
	}
	for _, path := range loaded {
		a.logger.Infow("loaded env file", "path", path)
	}

	cfg, err := config.New(vars, r)
	if err != nil {
		return nil, err
	}

	a.shell.Environ = func() []string { return shell.EnvPairs(cfg.Vars()) }
	return cfg, nil
}
