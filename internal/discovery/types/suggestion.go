package types

// ConfigRef points at the file a suggestion was read from.
type ConfigRef struct {
	Type string `json:"type" yaml:"type" toml:"type"` // "dockerfile", "docker-compose", "railway", ...
	Path string `json:"path" yaml:"path" toml:"path"`
}

// Suggestion is what one signal learned about the application. Empty
// fields carry no opinion.
type Suggestion struct {
	Source     ConfigRef
	Confidence int

	BaseImage      string
	Workdir        string
	Packages       []string
	Manifest       string
	Directories    []string
	StaticCommand  string
	MigrateCommand string
	ServeCommand   string
	DefaultPort    int
	// Required accumulates across suggestions instead of being replaced.
	Required []string
}

// IsEmpty reports whether the suggestion carries no opinion at all.
func (s Suggestion) IsEmpty() bool {
	return s.BaseImage == "" && s.Workdir == "" && len(s.Packages) == 0 &&
		s.Manifest == "" && len(s.Directories) == 0 && s.StaticCommand == "" &&
		s.MigrateCommand == "" && s.ServeCommand == "" && s.DefaultPort == 0 &&
		len(s.Required) == 0
}
