package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

type HerokuAppJsonSignal struct {
	fileSignal
}

func NewHerokuAppJsonSignal(filesystem filesystems.FileSystem) *HerokuAppJsonSignal {
	return &HerokuAppJsonSignal{fileSignal: newFileSignal(filesystem, "app.json")}
}

func (h *HerokuAppJsonSignal) Confidence() int {
	return 90 // Very high confidence - app.json declares the app's config vars
}

type HerokuAppJson struct {
	Name    string                  `json:"name"`
	Env     map[string]HerokuEnvVar `json:"env"`
	Scripts *HerokuScripts          `json:"scripts"`
}

type HerokuEnvVar struct {
	Description string `json:"description"`
	Value       any    `json:"value"`
	Required    *bool  `json:"required"`
	Generator   string `json:"generator"`
}

// UnmarshalJSON accepts the shorthand form where the variable is only a
// value.
func (e *HerokuEnvVar) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err == nil {
		*e = HerokuEnvVar{Value: value}
		return nil
	}
	type plain HerokuEnvVar
	return json.Unmarshal(data, (*plain)(e))
}

type HerokuScripts struct {
	Postdeploy any `json:"postdeploy"`
}

func (h *HerokuAppJsonSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := h.first()
	if path == "" {
		return nil, nil
	}

	content, err := h.filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var app HerokuAppJson
	if err := json.Unmarshal(content, &app); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s := types.Suggestion{
		Source:     types.ConfigRef{Type: "heroku", Path: path},
		Confidence: h.Confidence(),
	}
	for name, env := range app.Env {
		// Heroku treats a variable as required unless it says otherwise or
		// can fill it in itself.
		required := env.Required == nil || *env.Required
		if required && env.Value == nil && env.Generator == "" {
			s.Required = append(s.Required, name)
		}
	}
	sort.Strings(s.Required)

	if app.Scripts != nil {
		if postdeploy := scriptText(app.Scripts.Postdeploy); postdeploy != "" {
			var script types.Suggestion
			if err := applyScript(postdeploy, &script); err == nil {
				s.MigrateCommand = script.MigrateCommand
			}
		}
	}

	return []types.Suggestion{s}, nil
}

// scriptText reads a script given as a string or as {"command": "..."}.
func scriptText(v any) string {
	switch script := v.(type) {
	case string:
		return script
	case map[string]any:
		if command, ok := script["command"].(string); ok {
			return command
		}
	}
	return ""
}
