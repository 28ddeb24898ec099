package shell

import (
	"context"
	"fmt"
	"sort"
	"strings"

	shellexpand "mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

// Command is a named shell script run in a directory with extra environment.
type Command struct {
	// Name identifies the command in logs and errors, e.g. "collect-static".
	Name   string
	Script string
	Dir    string
	// Env overrides the inherited environment.
	Env map[string]string
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Validate parses script and reports syntax errors without running it.
func Validate(script string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("empty script")
	}
	if _, err := syntax.NewParser().Parse(strings.NewReader(script), ""); err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}
	return nil
}

// Render expands parameter references in script using env, falling back to
// lookup for names env does not define. Command substitutions are left
// unsupported; Render is only used to display plans.
func Render(script string, env map[string]string, lookup func(string) string) (string, error) {
	return shellexpand.Expand(script, func(name string) string {
		if v, ok := env[name]; ok {
			return v
		}
		if lookup != nil {
			return lookup(name)
		}
		return ""
	})
}

// EnvPairs flattens env into sorted KEY=VALUE pairs.
func EnvPairs(env map[string]string) []string {
	pairs := make([]string, 0, len(env))
	for k, v := range env {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}
