package export

import (
	"encoding/json"

	"github.com/railwayapp/launchpad/internal/recipe"
)

type JSONExporter struct{}

func (e *JSONExporter) Name() string {
	return "json"
}

func (e *JSONExporter) Export(r *recipe.Recipe) ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func NewJSONExporter() Exporter {
	return &JSONExporter{}
}
