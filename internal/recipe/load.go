package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/railwayapp/launchpad/internal/filesystems"
	"gopkg.in/yaml.v3"
)

// FileNames are the recipe file names looked up in a source tree, in order.
var FileNames = []string{"launchpad.yaml", "launchpad.yml", "launchpad.toml", "launchpad.json"}

// Find returns the path of the recipe file in dir, or "" when there is none.
func Find(filesystem filesystems.FileSystem, dir string) (string, error) {
	for _, name := range FileNames {
		found, err := filesystems.FindFile(filesystem, dir, name)
		if err != nil {
			return "", err
		}
		if found != "" {
			return found, nil
		}
	}
	return "", nil
}

// Load reads the recipe at path. Fields missing from the file keep their
// default values; fields present but empty disable the matching step.
func Load(filesystem filesystems.FileSystem, path string) (*Recipe, error) {
	data, err := filesystem.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}

	r, err := Parse(data, Format(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe %s: %w", path, err)
	}
	return r, nil
}

// LoadDir loads the recipe found in dir, falling back to Default. The
// returned path is empty when the default recipe is used.
func LoadDir(filesystem filesystems.FileSystem, dir string) (*Recipe, string, error) {
	path, err := Find(filesystem, dir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return Default(), "", nil
	}
	r, err := Load(filesystem, path)
	if err != nil {
		return nil, "", err
	}
	return r, path, nil
}

// Format returns the encoding implied by a file name: "json", "toml" or "yaml".
func Format(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return "json"
	case strings.HasSuffix(lower, ".toml"):
		return "toml"
	default:
		return "yaml"
	}
}

// Parse decodes data on top of the default recipe.
func Parse(data []byte, format string) (*Recipe, error) {
	r := Default()

	var err error
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(r)
	case "toml":
		var md toml.MetaData
		md, err = toml.Decode(string(data), r)
		if err == nil {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				err = fmt.Errorf("unknown field %q", undecoded[0].String())
			}
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported recipe format %q", format)
	}
	// An empty document leaves the defaults in place.
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return r, nil
}
