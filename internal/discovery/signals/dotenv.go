package signals

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

// DotEnvSignal reads committed env templates. Variables left empty there
// must be provided at run time.
type DotEnvSignal struct {
	fileSignal
}

func NewDotEnvSignal(filesystem filesystems.FileSystem) *DotEnvSignal {
	return &DotEnvSignal{fileSignal: newFileSignal(filesystem,
		".env.example",
		".env.sample",
		".env.template",
		"example.env",
	)}
}

func (d *DotEnvSignal) Confidence() int {
	return 40 // Low confidence - templates drift from what is deployed
}

func (d *DotEnvSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := d.first()
	if path == "" {
		return nil, nil
	}

	content, err := d.filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vars, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s := types.Suggestion{
		Source:     types.ConfigRef{Type: "dotenv", Path: path},
		Confidence: d.Confidence(),
	}
	for name, value := range vars {
		if name == "PORT" {
			if port, err := strconv.Atoi(value); err == nil {
				s.DefaultPort = port
			}
			continue
		}
		if value == "" {
			s.Required = append(s.Required, name)
		}
	}
	sort.Strings(s.Required)

	return []types.Suggestion{s}, nil
}
