package export

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/railwayapp/launchpad/internal/recipe"
)

type TOMLExporter struct{}

func (e *TOMLExporter) Name() string {
	return "toml"
}

func (e *TOMLExporter) Export(r *recipe.Recipe) ([]byte, error) {
	// The encoder drops nil slices, which would bring back the defaults on
	// load.
	out := *r
	if out.Packages == nil {
		out.Packages = []string{}
	}
	if out.Directories == nil {
		out.Directories = []string{}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func NewTOMLExporter() Exporter {
	return &TOMLExporter{}
}
