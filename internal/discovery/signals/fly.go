package signals

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

type FlySignal struct {
	fileSignal
}

func NewFlySignal(filesystem filesystems.FileSystem) *FlySignal {
	return &FlySignal{fileSignal: newFileSignal(filesystem, "fly.toml")}
}

func (f *FlySignal) Confidence() int {
	return 95 // Highest confidence - Fly configs are explicit production deployment specs
}

// FlyConfig represents the parts of fly.toml that describe booting the app.
type FlyConfig struct {
	App         string            `toml:"app"`
	Build       *FlyBuild         `toml:"build,omitempty"`
	Deploy      *FlyDeploy        `toml:"deploy,omitempty"`
	Env         map[string]string `toml:"env,omitempty"`
	Processes   map[string]string `toml:"processes,omitempty"`
	Services    []FlyService      `toml:"services,omitempty"`
	HTTPService *FlyHTTPService   `toml:"http_service,omitempty"`
}

type FlyBuild struct {
	Image      string `toml:"image,omitempty"`
	Dockerfile string `toml:"dockerfile,omitempty"`
}

type FlyDeploy struct {
	ReleaseCommand string `toml:"release_command,omitempty"`
}

type FlyService struct {
	InternalPort int      `toml:"internal_port"`
	Processes    []string `toml:"processes,omitempty"`
}

type FlyHTTPService struct {
	InternalPort int      `toml:"internal_port"`
	Processes    []string `toml:"processes,omitempty"`
}

func (f *FlySignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := f.first()
	if path == "" {
		return nil, nil
	}

	content, err := f.filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config FlyConfig
	if _, err := toml.Decode(string(content), &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s := types.Suggestion{
		Source:     types.ConfigRef{Type: "fly", Path: path},
		Confidence: f.Confidence(),
	}
	if config.Build != nil && config.Build.Image != "" {
		s.BaseImage = config.Build.Image
	}
	if config.Deploy != nil {
		s.MigrateCommand = config.Deploy.ReleaseCommand
	}

	switch {
	case config.HTTPService != nil && config.HTTPService.InternalPort > 0:
		s.DefaultPort = config.HTTPService.InternalPort
	case len(config.Services) > 0:
		s.DefaultPort = config.Services[0].InternalPort
	}

	if command := config.Processes["app"]; command != "" {
		serveCommand(command, &s)
	} else if command := config.Processes["web"]; command != "" {
		serveCommand(command, &s)
	}

	return []types.Suggestion{s}, nil
}
