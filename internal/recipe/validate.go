package recipe

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/railwayapp/launchpad/internal/shell"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid recipe")

var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate reports every problem found in the recipe, joined into one error.
func (r *Recipe) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	script := func(field, value string) {
		if err := shell.Validate(value); err != nil {
			add("%s: %v", field, err)
		}
	}

	if len(r.Packages) > 0 {
		if strings.TrimSpace(r.PackageCommand) == "" {
			add("packages are listed but package_command is empty")
		} else {
			script("package_command", r.PackageCommand)
		}
	}

	if strings.TrimSpace(r.Manifest) == "" {
		add("manifest is required")
	}
	if strings.TrimSpace(r.InstallCommand) == "" {
		add("install_command is required")
	} else {
		script("install_command", r.InstallCommand)
	}

	seen := make(map[string]bool, len(r.Directories))
	for _, dir := range r.Directories {
		if strings.TrimSpace(dir) == "" {
			add("directories: empty entry")
			continue
		}
		if seen[dir] {
			add("directories: %q listed twice", dir)
		}
		seen[dir] = true
	}

	if r.StaticCommand != "" {
		script("static_command", r.StaticCommand)
	}

	switch r.Migrate.Kind() {
	case MigrationNone:
		add("migrate: either command or source must be set")
	case MigrationCommand:
		script("migrate.command", r.Migrate.Command)
	case MigrationSource:
		if u, err := url.Parse(r.Migrate.Source); err != nil || u.Scheme == "" {
			add("migrate.source: %q is not a source URL", r.Migrate.Source)
		}
	}

	if strings.TrimSpace(r.ServeCommand) == "" {
		add("serve_command is required")
	} else {
		script("serve_command", r.ServeCommand)
	}

	if !envName.MatchString(r.PortVariable) {
		add("port_variable: %q is not a variable name", r.PortVariable)
	}
	if r.DefaultPort < 1 || r.DefaultPort > 65535 {
		add("default_port: %d is out of range", r.DefaultPort)
	}

	for _, name := range r.Required {
		if !envName.MatchString(name) {
			add("required: %q is not a variable name", name)
		}
	}

	return errors.Join(errs...)
}
