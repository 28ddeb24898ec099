package export

import (
	"fmt"
	"strings"

	"github.com/railwayapp/launchpad/internal/recipe"
)

// Exporter defines the interface for writing a recipe in a recipe file format
type Exporter interface {
	// Export converts a recipe to the target format
	Export(r *recipe.Recipe) ([]byte, error)

	// Name returns the exporter name, which is also the file extension
	Name() string
}

// New returns the exporter for format ("yaml", "yml", "toml" or "json").
func New(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return NewYAMLExporter(), nil
	case "toml":
		return NewTOMLExporter(), nil
	case "json":
		return NewJSONExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// FileName is the recipe file name the exporter's output should be saved as.
func FileName(e Exporter) string {
	return "launchpad." + e.Name()
}
