package signals

import (
	"context"
	"fmt"
	"sort"

	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
	"gopkg.in/yaml.v3"
)

type RenderSignal struct {
	fileSignal
}

func NewRenderSignal(filesystem filesystems.FileSystem) *RenderSignal {
	return &RenderSignal{fileSignal: newFileSignal(filesystem, "render.yaml")}
}

func (r *RenderSignal) Confidence() int {
	return 95 // Highest confidence - Render Blueprints are explicit production deployment specs
}

// RenderConfig is the subset of a Render Blueprint read here.
type RenderConfig struct {
	Services []RenderService `yaml:"services"`
}

type RenderService struct {
	Type             string         `yaml:"type"`
	Name             string         `yaml:"name"`
	Runtime          string         `yaml:"runtime,omitempty"`
	BuildCommand     string         `yaml:"buildCommand,omitempty"`
	StartCommand     string         `yaml:"startCommand,omitempty"`
	PreDeployCommand string         `yaml:"preDeployCommand,omitempty"`
	EnvVars          []RenderEnvVar `yaml:"envVars,omitempty"`
}

type RenderEnvVar struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value,omitempty"`
	// Sync false marks a value to be entered in the dashboard.
	Sync *bool `yaml:"sync,omitempty"`
}

func (r *RenderSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := r.first()
	if path == "" {
		return nil, nil
	}

	content, err := r.filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config RenderConfig
	if err := yaml.Unmarshal(content, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var web *RenderService
	for i := range config.Services {
		if config.Services[i].Type == "web" {
			web = &config.Services[i]
			break
		}
	}
	if web == nil {
		return nil, nil
	}

	s := types.Suggestion{
		Source:         types.ConfigRef{Type: "render", Path: path},
		Confidence:     r.Confidence(),
		MigrateCommand: web.PreDeployCommand,
	}
	if web.StartCommand != "" {
		serveCommand(web.StartCommand, &s)
	}
	if web.BuildCommand != "" {
		var build types.Suggestion
		if err := applyScript(web.BuildCommand, &build); err == nil {
			s.StaticCommand = build.StaticCommand
		}
	}
	for _, env := range web.EnvVars {
		if env.Sync != nil && !*env.Sync {
			s.Required = append(s.Required, env.Key)
		}
	}
	sort.Strings(s.Required)

	return []types.Suggestion{s}, nil
}
