// Package discovery derives a recipe from an existing source tree by
// reading the deployment files it already has.
package discovery

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/railwayapp/launchpad/internal/discovery/signals"
	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
	"github.com/railwayapp/launchpad/internal/recipe"
	"go.uber.org/zap"
)

// DefaultMaxDepth limits how far below the root deployment files are read.
const DefaultMaxDepth = 2

// Signal observes directory entries and turns what it saw into suggestions.
type Signal interface {
	// Called for each entry encountered during the walk, shallowest first.
	ObserveEntry(ctx context.Context, dir string, entry filesystems.DirEntry) error

	// Called once the walk is over.
	Suggest(ctx context.Context) ([]types.Suggestion, error)

	// Reset internal state before a new walk.
	Reset()

	// Confidence level for conflict resolution, 0-100.
	Confidence() int
}

// Result is an inspected recipe and the files it was derived from.
type Result struct {
	Recipe  *recipe.Recipe    `json:"recipe" yaml:"recipe" toml:"recipe"`
	Sources []types.ConfigRef `json:"sources" yaml:"sources" toml:"sources"`
}

type Inspector struct {
	signals    []Signal
	filesystem filesystems.FileSystem
	logger     *zap.SugaredLogger
	MaxDepth   int
}

func NewInspector(filesystem filesystems.FileSystem, logger *zap.SugaredLogger, sigs ...Signal) *Inspector {
	if len(sigs) == 0 {
		sigs = DefaultSignals(filesystem)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Inspector{
		signals:    sigs,
		filesystem: filesystem,
		logger:     logger,
		MaxDepth:   DefaultMaxDepth,
	}
}

func DefaultSignals(filesystem filesystems.FileSystem) []Signal {
	return []Signal{
		signals.NewRailwaySignal(filesystem),
		signals.NewFlySignal(filesystem),
		signals.NewRenderSignal(filesystem),
		signals.NewHerokuAppJsonSignal(filesystem),
		signals.NewProcfileSignal(filesystem),
		signals.NewDockerComposeSignal(filesystem),
		signals.NewDockerfileSignal(filesystem),
		signals.NewDotEnvSignal(filesystem),
		signals.NewPythonSignal(filesystem),
		signals.NewSettingsSignal(filesystem),
	}
}

// Inspect walks rootPath and merges every signal's suggestions on top of the
// default recipe. Higher confidence wins field by field.
func (in *Inspector) Inspect(ctx context.Context, rootPath string) (*Result, error) {
	for _, signal := range in.signals {
		signal.Reset()
	}

	if err := in.walk(ctx, rootPath); err != nil {
		return nil, fmt.Errorf("filesystem walk failed: %w", err)
	}

	var suggestions []types.Suggestion
	for _, signal := range in.signals {
		found, err := signal.Suggest(ctx)
		if err != nil {
			in.logger.Warnw("signal failed", "signal", fmt.Sprintf("%T", signal), "error", err)
			continue
		}
		for _, s := range found {
			if s.Confidence == 0 {
				s.Confidence = signal.Confidence()
			}
			if !s.IsEmpty() {
				suggestions = append(suggestions, s)
			}
		}
	}

	r := Merge(recipe.Default(), suggestions)
	if base := in.filesystem.Base(rootPath); base != "." && base != "/" && base != "" {
		r.Name = base
	}

	result := &Result{Recipe: r}
	for _, s := range suggestions {
		result.Sources = append(result.Sources, s.Source)
	}
	return result, nil
}

// Merge applies suggestions to base in ascending confidence, so the most
// confident source decides each field. Required variables are unioned.
func Merge(base *recipe.Recipe, suggestions []types.Suggestion) *recipe.Recipe {
	ordered := slices.Clone(suggestions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence < ordered[j].Confidence
	})

	r := *base
	required := slices.Clone(base.Required)
	for _, s := range ordered {
		setString(&r.BaseImage, s.BaseImage)
		setString(&r.Workdir, s.Workdir)
		setString(&r.Manifest, s.Manifest)
		setString(&r.StaticCommand, s.StaticCommand)
		setString(&r.Migrate.Command, s.MigrateCommand)
		setString(&r.ServeCommand, s.ServeCommand)
		if len(s.Packages) > 0 {
			r.Packages = slices.Clone(s.Packages)
		}
		if len(s.Directories) > 0 {
			r.Directories = slices.Clone(s.Directories)
		}
		if s.DefaultPort > 0 {
			r.DefaultPort = s.DefaultPort
		}
		for _, name := range s.Required {
			if !slices.Contains(required, name) {
				required = append(required, name)
			}
		}
	}
	sort.Strings(required)
	r.Required = required
	return &r
}

func setString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

var excludePatterns = []string{
	// Dependencies
	"node_modules", "vendor", "venv", "env", "site-packages", "__pycache__",

	// Build outputs
	"dist", "build", "out", "staticfiles", "media", "static",

	// Temporary
	"tmp", "temp", "cache", "logs", "coverage",

	// Usually not services
	"examples", "test", "tests", "docs",
}

func shouldIgnoreDirectory(dirName string) bool {
	for _, pattern := range excludePatterns {
		if strings.EqualFold(dirName, pattern) {
			return true
		}
	}
	// Allow "." but ignore other dot and underscore directories
	return strings.HasPrefix(dirName, "_") || (strings.HasPrefix(dirName, ".") && len(dirName) > 1)
}

type walkItem struct {
	path  string
	depth int
}

// walk visits directories breadth first so signals see shallow files first.
func (in *Inspector) walk(ctx context.Context, rootPath string) error {
	queue := []walkItem{{path: rootPath, depth: 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		current := queue[0]
		queue = queue[1:]

		if current.depth > in.MaxDepth {
			continue
		}
		if current.depth > 0 && shouldIgnoreDirectory(in.filesystem.Base(current.path)) {
			continue
		}

		for entry, err := range in.filesystem.ReadDir(current.path) {
			if err != nil {
				if current.depth == 0 {
					return err
				}
				in.logger.Debugw("skipping unreadable directory", "path", current.path, "error", err)
				break
			}

			for _, signal := range in.signals {
				if err := signal.ObserveEntry(ctx, current.path, entry); err != nil {
					in.logger.Debugw("signal could not observe entry", "path", current.path, "entry", entry.Name(), "error", err)
				}
			}

			if entry.IsDir() {
				queue = append(queue, walkItem{path: in.filesystem.Join(current.path, entry.Name()), depth: current.depth + 1})
			}
		}
	}

	return nil
}
