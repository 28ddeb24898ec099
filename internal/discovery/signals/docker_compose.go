package signals

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	composeTypes "github.com/compose-spec/compose-go/v2/types"
	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

type DockerComposeSignal struct {
	fileSignal
}

func NewDockerComposeSignal(filesystem filesystems.FileSystem) *DockerComposeSignal {
	return &DockerComposeSignal{fileSignal: newFileSignal(filesystem,
		"compose.yaml",
		"compose.yml",
		"docker-compose.yaml",
		"docker-compose.yml",
	)}
}

func (d *DockerComposeSignal) Confidence() int {
	return 90 // Very high confidence - docker-compose explicitly defines services
}

// Service names that usually hold the web process.
var webServiceNames = []string{"web", "app", "django", "api", "server"}

func (d *DockerComposeSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := d.first()
	if path == "" {
		return nil, nil
	}

	content, err := d.filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dir := d.filesystem.Dir(path)
	configDetails := composeTypes.ConfigDetails{
		WorkingDir: dir,
		ConfigFiles: []composeTypes.ConfigFile{
			{Filename: path, Content: content},
		},
		Environment: composeTypes.Mapping{},
	}

	project, err := loader.LoadWithContext(ctx, configDetails, func(options *loader.Options) {
		options.SetProjectName(projectName(d.filesystem.Base(dir)), true)
		options.SkipResolveEnvironment = true
		options.SkipConsistencyCheck = true
		options.SkipInclude = true
		options.ResolvePaths = false
	})
	if err != nil {
		return nil, err
	}

	web, ok := pickWebService(project.Services)
	if !ok {
		return nil, nil
	}

	s := types.Suggestion{
		Source:     types.ConfigRef{Type: "docker-compose", Path: path},
		Confidence: d.Confidence(),
		Required:   requiredFromEnvironment(web.Environment),
	}

	if port := servicePort(web); port > 0 {
		s.DefaultPort = port
	}
	if command := composeCommand(web); command != "" {
		serveCommand(command, &s)
	}

	// A one-shot service running migrations next to the web service.
	for _, name := range sortedServiceNames(project.Services) {
		if name == web.Name {
			continue
		}
		command := composeCommand(project.Services[name])
		if command == "" {
			continue
		}
		var other types.Suggestion
		if err := applyScript(command, &other); err == nil && other.MigrateCommand != "" && s.MigrateCommand == "" {
			s.MigrateCommand = other.MigrateCommand
		}
	}

	return []types.Suggestion{s}, nil
}

func pickWebService(services composeTypes.Services) (composeTypes.ServiceConfig, bool) {
	names := sortedServiceNames(services)

	var built []string
	for _, name := range names {
		if services[name].Build != nil {
			built = append(built, name)
		}
	}
	if len(built) == 0 {
		return composeTypes.ServiceConfig{}, false
	}

	for _, preferred := range webServiceNames {
		for _, name := range built {
			if strings.EqualFold(name, preferred) {
				return services[name], true
			}
		}
	}
	// Otherwise the first built service that listens on a port.
	for _, name := range built {
		if servicePort(services[name]) > 0 {
			return services[name], true
		}
	}
	return services[built[0]], true
}

func sortedServiceNames(services composeTypes.Services) []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func servicePort(service composeTypes.ServiceConfig) int {
	for _, port := range service.Ports {
		if port.Target > 0 {
			return int(port.Target)
		}
	}
	for _, expose := range service.Expose {
		first, _, _ := strings.Cut(expose, "-")
		if port, err := strconv.Atoi(strings.SplitN(first, "/", 2)[0]); err == nil {
			return port
		}
	}
	return 0
}

// composeCommand renders entrypoint and command as one script, unwrapping
// "sh -c" forms.
func composeCommand(service composeTypes.ServiceConfig) string {
	args := append(append([]string{}, service.Entrypoint...), service.Command...)
	if len(args) == 0 {
		return ""
	}
	if len(args) == 3 && (args[0] == "sh" || args[0] == "bash" || args[0] == "/bin/sh" || args[0] == "/bin/bash") && args[1] == "-c" {
		return args[2]
	}
	return joinArgs(args)
}

// requiredFromEnvironment returns the variables passed through from the
// host without a value.
func requiredFromEnvironment(env composeTypes.MappingWithEquals) []string {
	var required []string
	for name, value := range env {
		if value == nil {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return required
}

// projectName lowers a directory name into a valid compose project name.
func projectName(base string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	name := strings.TrimLeft(b.String(), "-_")
	if name == "" {
		return "launchpad"
	}
	return name
}
