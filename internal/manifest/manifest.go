// Package manifest renders the image-build manifest (a Dockerfile) that runs
// the provisioner at build time and the bootstrapper as the container
// command.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
	"github.com/railwayapp/launchpad/internal/recipe"
)

const DefaultBinary = "/usr/local/bin/launchpad"

var ErrInvalidManifest = errors.New("invalid manifest")

type Options struct {
	// BinarySource is where the launchpad binary is copied from: a path in
	// the build context, or an image reference when FromImage is set.
	BinarySource string
	FromImage    bool
}

// Render writes a Dockerfile for r and checks that it parses.
func Render(r *recipe.Recipe, opts Options) ([]byte, error) {
	if r.BaseImage == "" {
		return nil, fmt.Errorf("%w: recipe has no base image", ErrInvalidManifest)
	}
	if opts.BinarySource == "" {
		opts.BinarySource = "launchpad"
	}

	var b bytes.Buffer
	b.WriteString("# syntax=docker/dockerfile:1\n")
	fmt.Fprintf(&b, "FROM %s\n", r.BaseImage)
	if r.Workdir != "" {
		fmt.Fprintf(&b, "WORKDIR %s\n", r.Workdir)
	}
	b.WriteString("\n")

	if opts.FromImage {
		fmt.Fprintf(&b, "COPY --from=%s %s %s\n", opts.BinarySource, DefaultBinary, DefaultBinary)
	} else {
		fmt.Fprintf(&b, "COPY %s %s\n", opts.BinarySource, DefaultBinary)
	}
	b.WriteString("COPY . .\n")
	fmt.Fprintf(&b, "RUN %s\n", execForm(DefaultBinary, "provision", "."))
	b.WriteString("\n")

	if r.PortVariable != "" && r.DefaultPort > 0 {
		fmt.Fprintf(&b, "ENV %s=%d\n", r.PortVariable, r.DefaultPort)
	}
	if r.DefaultPort > 0 {
		fmt.Fprintf(&b, "EXPOSE %d\n", r.DefaultPort)
	}
	fmt.Fprintf(&b, "CMD %s\n", execForm(DefaultBinary, "start"))

	out := b.Bytes()
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate parses a Dockerfile and checks that it builds an image that runs
// something.
func Validate(content []byte) error {
	result, err := parser.Parse(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var from, cmd bool
	for _, node := range result.AST.Children {
		instruction := strings.ToLower(node.Value)
		if !from && instruction != "from" && instruction != "arg" {
			return fmt.Errorf("%w: line %d: %s before FROM", ErrInvalidManifest, node.StartLine, strings.ToUpper(instruction))
		}

		switch instruction {
		case "from":
			from = true
		case "cmd", "entrypoint":
			cmd = true
		case "expose":
			for n := node.Next; n != nil; n = n.Next {
				port, _, _ := strings.Cut(n.Value, "/")
				if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
					return fmt.Errorf("%w: line %d: invalid port %q", ErrInvalidManifest, node.StartLine, n.Value)
				}
			}
		}
	}
	if !from {
		return fmt.Errorf("%w: no FROM instruction", ErrInvalidManifest)
	}
	if !cmd {
		return fmt.Errorf("%w: no CMD or ENTRYPOINT", ErrInvalidManifest)
	}
	return nil
}

func execForm(args ...string) string {
	out, _ := json.Marshal(args)
	return string(out)
}
