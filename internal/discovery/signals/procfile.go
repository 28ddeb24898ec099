package signals

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

type ProcfileSignal struct {
	fileSignal
}

func NewProcfileSignal(filesystem filesystems.FileSystem) *ProcfileSignal {
	return &ProcfileSignal{fileSignal: newFileSignal(filesystem, "Procfile")}
}

func (p *ProcfileSignal) Confidence() int {
	return 85 // High confidence - Procfiles define explicit process types
}

func (p *ProcfileSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := p.first()
	if path == "" {
		return nil, nil
	}

	processes, err := p.parseProcfile(path)
	if err != nil {
		return nil, err
	}

	s := types.Suggestion{
		Source:     types.ConfigRef{Type: "procfile", Path: path},
		Confidence: p.Confidence(),
	}
	if web := processes["web"]; web != "" {
		serveCommand(web, &s)
	}
	// The release phase runs before the new release serves traffic.
	if release := processes["release"]; release != "" {
		s.MigrateCommand = release
	}

	return []types.Suggestion{s}, nil
}

func (p *ProcfileSignal) parseProcfile(configPath string) (map[string]string, error) {
	content, err := p.filesystem.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	processes := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		processType, command, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		processes[strings.TrimSpace(processType)] = strings.TrimSpace(command)
	}

	return processes, scanner.Err()
}
