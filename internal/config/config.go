// Package config reads the runtime configuration once, at bootstrap start.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/railwayapp/launchpad/internal/recipe"
)

// ListenHost is the interface the application server binds to.
const ListenHost = "0.0.0.0"

var (
	ErrMissingVariable = errors.New("missing required variable")
	ErrInvalidPort     = errors.New("invalid port")
	ErrNoDatabase      = errors.New("no database configured")
)

// RuntimeConfig is an immutable snapshot of the environment.
type RuntimeConfig struct {
	vars         map[string]string
	port         int
	portVariable string
	portDefault  bool
}

// New resolves the listen port from vars and checks the recipe's required
// variables. vars is copied.
func New(vars map[string]string, r *recipe.Recipe) (*RuntimeConfig, error) {
	cfg := &RuntimeConfig{
		vars:         maps.Clone(vars),
		portVariable: r.PortVariable,
	}
	if cfg.vars == nil {
		cfg.vars = map[string]string{}
	}

	raw, ok := cfg.vars[r.PortVariable]
	if !ok || strings.TrimSpace(raw) == "" {
		cfg.port = r.DefaultPort
		cfg.portDefault = true
	} else {
		port, err := ParsePort(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.PortVariable, err)
		}
		cfg.port = port
	}

	var missing []string
	for _, name := range r.Required {
		if v, ok := cfg.vars[name]; !ok || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(missing, ", "))
	}

	return cfg, nil
}

// ParsePort parses a TCP port in the range 1-65535.
func ParsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPort, raw)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %d is out of range", ErrInvalidPort, port)
	}
	return port, nil
}

func (c *RuntimeConfig) Get(name string) (string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c *RuntimeConfig) Port() int { return c.port }

// PortIsDefault reports whether the port variable was unset.
func (c *RuntimeConfig) PortIsDefault() bool { return c.portDefault }

func (c *RuntimeConfig) PortVariable() string { return c.portVariable }

// Addr is the listen address, always on all interfaces.
func (c *RuntimeConfig) Addr() string {
	return net.JoinHostPort(ListenHost, strconv.Itoa(c.port))
}

// Vars returns a copy of every variable.
func (c *RuntimeConfig) Vars() map[string]string {
	return maps.Clone(c.vars)
}

// Names returns the variable names in sorted order.
func (c *RuntimeConfig) Names() []string {
	names := make([]string, 0, len(c.vars))
	for name := range c.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatabaseURL returns DATABASE_URL, or a postgres URL assembled from
// DB_NAME, DB_USER, DB_PASSWORD, DB_HOST and DB_PORT.
func (c *RuntimeConfig) DatabaseURL() (string, error) {
	if v := c.vars["DATABASE_URL"]; v != "" {
		return v, nil
	}

	name := c.vars["DB_NAME"]
	if name == "" {
		return "", ErrNoDatabase
	}

	host := c.vars["DB_HOST"]
	if host == "" {
		host = "localhost"
	}
	port := c.vars["DB_PORT"]
	if port == "" {
		port = "5432"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + name,
	}
	if user := c.vars["DB_USER"]; user != "" {
		if password, ok := c.vars["DB_PASSWORD"]; ok {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	if mode := c.vars["DB_SSLMODE"]; mode != "" {
		u.RawQuery = url.Values{"sslmode": {mode}}.Encode()
	}
	return u.String(), nil
}
