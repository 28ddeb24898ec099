package signals

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
	"mvdan.cc/sh/v3/shell"
)

type DockerfileSignal struct {
	fileSignal
}

func NewDockerfileSignal(filesystem filesystems.FileSystem) *DockerfileSignal {
	return &DockerfileSignal{fileSignal: newFileSignal(filesystem, "Dockerfile")}
}

func (d *DockerfileSignal) Confidence() int {
	return 70 // Describes how the image is built, not how it is deployed
}

func (d *DockerfileSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := d.first()
	if path == "" {
		return nil, nil
	}

	content, err := d.filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}
	result, err := parser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	s := types.Suggestion{
		Source:     types.ConfigRef{Type: "dockerfile", Path: path},
		Confidence: d.Confidence(),
	}

	var entrypoint, cmd string
	var envPort int
	for _, node := range result.AST.Children {
		args := nodeArgs(node)
		if len(args) == 0 {
			continue
		}

		switch strings.ToLower(node.Value) {
		case "from":
			// The last stage is the runtime image.
			s.BaseImage = args[0]
			s.Packages = nil
		case "workdir":
			s.Workdir = args[0]
		case "expose":
			if port, err := strconv.Atoi(strings.SplitN(args[0], "/", 2)[0]); err == nil {
				s.DefaultPort = port
			}
		case "env":
			if port := envPortFromLine(node.Original); port > 0 {
				envPort = port
			}
		case "run":
			d.inspectRun(commandLine(node, args), &s)
		case "entrypoint":
			entrypoint = commandLine(node, args)
		case "cmd":
			cmd = commandLine(node, args)
		}
	}

	if s.DefaultPort == 0 {
		s.DefaultPort = envPort
	}

	if entrypoint != "" {
		d.inspectEntrypoint(path, entrypoint, cmd, &s)
	} else if cmd != "" {
		serveCommand(cmd, &s)
	}

	return []types.Suggestion{s}, nil
}

func (d *DockerfileSignal) inspectRun(script string, s *types.Suggestion) {
	calls, err := scriptCalls(script)
	if err != nil {
		return
	}

	for _, c := range calls {
		switch c.name() {
		case "apt-get", "apk":
			if c.has("install") || c.has("add") {
				s.Packages = append(s.Packages, packageArgs(c)...)
			}
		case "pip", "pip3", "python", "python3":
			if manifest := requirementArg(c); manifest != "" {
				s.Manifest = manifest
			}
		case "mkdir":
			for _, lit := range c.Lits[c.program()+1:] {
				if lit != "" && !strings.HasPrefix(lit, "-") {
					s.Directories = append(s.Directories, lit)
				}
			}
		}
		if isCollectStatic(c) {
			s.StaticCommand = c.Text(c.program())
		}
	}
}

// inspectEntrypoint reads the entrypoint script when it lives in the build
// context, which is where the migrate-then-serve sequence usually is.
func (d *DockerfileSignal) inspectEntrypoint(dockerfilePath, entrypoint, cmd string, s *types.Suggestion) {
	fields, err := shell.Fields(entrypoint, func(string) string { return "" })
	if err == nil && len(fields) > 0 {
		script := fields[0]
		if (fields[0] == "sh" || fields[0] == "bash") && len(fields) > 1 {
			script = fields[1]
		}
		if strings.HasSuffix(script, ".sh") {
			local := d.filesystem.Join(d.filesystem.Dir(dockerfilePath), d.filesystem.Base(script))
			if content, err := d.filesystem.ReadFile(local); err == nil {
				if err := applyScript(string(content), s); err == nil && s.ServeCommand != "" {
					return
				}
			}
		}
	}

	serveCommand(strings.TrimSpace(entrypoint+" "+cmd), s)
}

func nodeArgs(node *parser.Node) []string {
	var args []string
	for n := node.Next; n != nil; n = n.Next {
		args = append(args, n.Value)
	}
	return args
}

func commandLine(node *parser.Node, args []string) string {
	if node.Attributes["json"] {
		return joinArgs(args)
	}
	return strings.Join(args, " ")
}

func packageArgs(c call) []string {
	var pkgs []string
	started := false
	for _, lit := range c.Lits[c.program()+1:] {
		if lit == "install" || lit == "add" {
			started = true
			continue
		}
		if !started || lit == "" || strings.HasPrefix(lit, "-") {
			continue
		}
		pkgs = append(pkgs, lit)
	}
	return pkgs
}

func requirementArg(c call) string {
	if !c.has("install") {
		return ""
	}
	for i, lit := range c.Lits {
		if (lit == "-r" || lit == "--requirement") && i+1 < len(c.Lits) {
			return c.Lits[i+1]
		}
		if v, ok := strings.CutPrefix(lit, "--requirement="); ok {
			return v
		}
	}
	return ""
}

// envPortFromLine reads PORT out of an ENV instruction in either form.
func envPortFromLine(line string) int {
	fields, err := shell.Fields(line, func(string) string { return "" })
	if err != nil || len(fields) < 2 {
		return 0
	}
	fields = fields[1:]

	if !strings.Contains(fields[0], "=") {
		if fields[0] == "PORT" && len(fields) > 1 {
			port, _ := strconv.Atoi(fields[1])
			return port
		}
		return 0
	}
	for _, f := range fields {
		if v, ok := strings.CutPrefix(f, "PORT="); ok {
			port, _ := strconv.Atoi(v)
			return port
		}
	}
	return 0
}
