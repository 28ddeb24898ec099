package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

type RailwaySignal struct {
	fileSignal
}

func NewRailwaySignal(filesystem filesystems.FileSystem) *RailwaySignal {
	return &RailwaySignal{fileSignal: newFileSignal(filesystem, "railway.json", "railway.toml")}
}

func (r *RailwaySignal) Confidence() int {
	return 95 // Highest confidence - Railway configs are explicit production deployment specs
}

// RailwayConfig is the part of the Railway config-as-code schema that
// describes how a service boots.
type RailwayConfig struct {
	Build  *RailwayBuild  `json:"build,omitempty" toml:"build,omitempty"`
	Deploy *RailwayDeploy `json:"deploy,omitempty" toml:"deploy,omitempty"`
}

type RailwayBuild struct {
	Builder        string `json:"builder,omitempty" toml:"builder,omitempty"`
	BuildCommand   string `json:"buildCommand,omitempty" toml:"buildCommand,omitempty"`
	DockerfilePath string `json:"dockerfilePath,omitempty" toml:"dockerfilePath,omitempty"`
}

type RailwayDeploy struct {
	StartCommand string `json:"startCommand,omitempty" toml:"startCommand,omitempty"`
	// PreDeployCommand is a string or a list of commands.
	PreDeployCommand any    `json:"preDeployCommand,omitempty" toml:"preDeployCommand,omitempty"`
	HealthcheckPath  string `json:"healthcheckPath,omitempty" toml:"healthcheckPath,omitempty"`
}

func (r *RailwaySignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := r.first()
	if path == "" {
		return nil, nil
	}

	config, err := r.parseRailwayConfig(path)
	if err != nil {
		return nil, err
	}

	s := types.Suggestion{
		Source:     types.ConfigRef{Type: "railway", Path: path},
		Confidence: r.Confidence(),
	}
	if config.Deploy != nil {
		if config.Deploy.StartCommand != "" {
			serveCommand(config.Deploy.StartCommand, &s)
		}
		s.MigrateCommand = commandText(config.Deploy.PreDeployCommand)
	}
	if config.Build != nil && config.Build.BuildCommand != "" {
		// Only a collectstatic call is carried over from the build command.
		var build types.Suggestion
		if err := applyScript(config.Build.BuildCommand, &build); err == nil {
			s.StaticCommand = build.StaticCommand
		}
	}

	return []types.Suggestion{s}, nil
}

func (r *RailwaySignal) parseRailwayConfig(configPath string) (*RailwayConfig, error) {
	data, err := r.filesystem.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config RailwayConfig

	// Use the path extension to determine format
	if strings.HasSuffix(strings.ToLower(configPath), ".json") {
		err = json.Unmarshal(data, &config)
	} else {
		err = toml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return &config, nil
}

// commandText joins a command given either as a string or as a list of
// commands.
func commandText(v any) string {
	switch c := v.(type) {
	case string:
		return strings.TrimSpace(c)
	case []any:
		var parts []string
		for _, item := range c {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, " && ")
	}
	return ""
}
