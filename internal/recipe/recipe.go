// Package recipe describes how one application is provisioned at build time
// and bootstrapped at run time.
package recipe

import (
	"net"
	"strconv"
	"strings"
)

// Recipe is the declarative description of an application's bootstrap.
type Recipe struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	BaseImage string `json:"baseImage,omitempty" yaml:"base_image,omitempty" toml:"base_image,omitempty"`
	Workdir   string `json:"workdir,omitempty" yaml:"workdir,omitempty" toml:"workdir,omitempty"`

	// Packages is the fixed OS package set, installed with PackageCommand.
	Packages       []string `json:"packages" yaml:"packages" toml:"packages"`
	PackageCommand string   `json:"packageCommand" yaml:"package_command" toml:"package_command"`

	// Manifest is the dependency manifest, relative to the source tree.
	Manifest       string `json:"manifest" yaml:"manifest" toml:"manifest"`
	InstallCommand string `json:"installCommand" yaml:"install_command" toml:"install_command"`

	Directories   []string `json:"directories" yaml:"directories" toml:"directories"`
	StaticCommand string   `json:"staticCommand" yaml:"static_command" toml:"static_command"`

	Migrate      Migration `json:"migrate" yaml:"migrate" toml:"migrate"`
	ServeCommand string    `json:"serveCommand" yaml:"serve_command" toml:"serve_command"`

	PortVariable string `json:"portVariable" yaml:"port_variable" toml:"port_variable"`
	DefaultPort  int    `json:"defaultPort" yaml:"default_port" toml:"default_port"`

	// Required lists runtime variables that must be set before migrating.
	Required []string `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
}

// Migration selects the migration-apply operation. When Source is set the
// migrations are applied in process and Command is ignored.
type Migration struct {
	Command string `json:"command,omitempty" yaml:"command,omitempty" toml:"command,omitempty"`
	// Source is a golang-migrate source URL such as file://migrations.
	Source string `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	// DatabaseURL overrides the URL resolved from the runtime environment.
	DatabaseURL string `json:"databaseUrl,omitempty" yaml:"database_url,omitempty" toml:"database_url,omitempty"`
}

type MigrationKind string

const (
	MigrationNone    MigrationKind = ""
	MigrationCommand MigrationKind = "command"
	MigrationSource  MigrationKind = "source"
)

func (m Migration) Kind() MigrationKind {
	switch {
	case strings.TrimSpace(m.Source) != "":
		return MigrationSource
	case strings.TrimSpace(m.Command) != "":
		return MigrationCommand
	default:
		return MigrationNone
	}
}

// Default returns the recipe used when no recipe file is present.
func Default() *Recipe {
	return &Recipe{
		Name:           "app",
		BaseImage:      "python:3.12-slim",
		Workdir:        "/app",
		Packages:       []string{"build-essential", "libpq-dev"},
		PackageCommand: "apt-get update && apt-get install -y --no-install-recommends $PACKAGES && rm -rf /var/lib/apt/lists/*",
		Manifest:       "requirements.txt",
		InstallCommand: "pip install --no-cache-dir -r $MANIFEST",
		Directories:    []string{"staticfiles", "media"},
		StaticCommand:  "python manage.py collectstatic --noinput",
		Migrate: Migration{
			Command: "python manage.py migrate --noinput",
		},
		ServeCommand: "daphne -b $HOST -p $PORT main.asgi:application",
		PortVariable: "PORT",
		DefaultPort:  8000,
	}
}

// BuildEnv is the environment the build-time commands see.
func (r *Recipe) BuildEnv() map[string]string {
	return map[string]string{
		"PACKAGES": strings.Join(r.Packages, " "),
		"MANIFEST": r.Manifest,
	}
}

// ServeEnv is the environment the serve command sees for the given port.
func (r *Recipe) ServeEnv(host string, port int) map[string]string {
	p := strconv.Itoa(port)
	env := map[string]string{
		"HOST": host,
		"PORT": p,
		"ADDR": net.JoinHostPort(host, p),
	}
	if r.PortVariable != "" {
		env[r.PortVariable] = p
	}
	return env
}
