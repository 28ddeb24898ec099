package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

// DefaultDotEnv is loaded from the working directory when present.
const DefaultDotEnv = ".env"

// ParseEnviron turns KEY=VALUE pairs into a map. Later pairs win.
func ParseEnviron(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		vars[key] = value
	}
	return vars
}

// Environment merges dotenv files under the process environment.
type Environment struct {
	filesystem filesystems.FileSystem
	environ    func() []string
}

func NewEnvironment(filesystem filesystems.FileSystem, environ func() []string) *Environment {
	return &Environment{filesystem: filesystem, environ: environ}
}

// Load returns the process environment with values from the dotenv files
// filled in for names the process does not set. The optional file is
// skipped when absent; every file in files must exist. Earlier files win
// over later ones, as with godotenv.Load.
func (e *Environment) Load(optional string, files []string) (map[string]string, []string, error) {
	vars := ParseEnviron(e.environ())

	var loaded []string
	apply := func(path string) error {
		data, err := e.filesystem.ReadFile(path)
		if err != nil {
			return err
		}
		parsed, err := godotenv.Unmarshal(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for key, value := range parsed {
			if _, set := vars[key]; !set {
				vars[key] = value
			}
		}
		loaded = append(loaded, path)
		return nil
	}

	for _, path := range files {
		if err := apply(path); err != nil {
			return nil, nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if optional != "" {
		exists, err := filesystems.Exists(e.filesystem, optional)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			if err := apply(optional); err != nil {
				return nil, nil, fmt.Errorf("failed to load env file: %w", err)
			}
		}
	}

	return vars, loaded, nil
}
