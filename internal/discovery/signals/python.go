package signals

import (
	"context"
	"strings"

	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

// PythonSignal recognizes a Django project from its layout when nothing
// more explicit describes how it runs.
type PythonSignal struct {
	filesystem filesystems.FileSystem
	manage     string
	manifests  []string
	asgi       []string
	wsgi       []string
}

func NewPythonSignal(filesystem filesystems.FileSystem) *PythonSignal {
	return &PythonSignal{filesystem: filesystem}
}

func (p *PythonSignal) Confidence() int {
	return 50 // Medium confidence - inferred from layout, not a deployment config
}

func (p *PythonSignal) Reset() {
	p.manage = ""
	p.manifests = nil
	p.asgi = nil
	p.wsgi = nil
}

func (p *PythonSignal) ObserveEntry(ctx context.Context, dir string, entry filesystems.DirEntry) error {
	if entry.IsDir() {
		return nil
	}

	path := p.filesystem.Join(dir, entry.Name())
	switch strings.ToLower(entry.Name()) {
	case "manage.py":
		if p.manage == "" {
			p.manage = path
		}
	case "requirements.txt", "requirements.in":
		p.manifests = append(p.manifests, path)
	case "asgi.py":
		p.asgi = append(p.asgi, path)
	case "wsgi.py":
		p.wsgi = append(p.wsgi, path)
	}
	return nil
}

func (p *PythonSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	if p.manage == "" {
		return nil, nil
	}
	root := p.filesystem.Dir(p.manage)

	s := types.Suggestion{
		Source:         types.ConfigRef{Type: "django", Path: p.manage},
		Confidence:     p.Confidence(),
		MigrateCommand: "python manage.py migrate --noinput",
		StaticCommand:  "python manage.py collectstatic --noinput",
	}

	if manifest := p.manifest(root); manifest != "" {
		s.Manifest = manifest
	}

	// The settings package sits next to manage.py.
	if module := p.entryModule(root, p.asgi); module != "" {
		s.ServeCommand = "daphne -b $HOST -p $PORT " + module + ".asgi:application"
	} else if module := p.entryModule(root, p.wsgi); module != "" {
		s.ServeCommand = "gunicorn --bind $HOST:$PORT " + module + ".wsgi:application"
	}

	return []types.Suggestion{s}, nil
}

// manifest prefers requirements.txt, relative to the project root.
func (p *PythonSignal) manifest(root string) string {
	var best string
	for _, path := range p.manifests {
		if p.filesystem.Dir(path) != root {
			continue
		}
		base := strings.ToLower(p.filesystem.Base(path))
		if base == "requirements.txt" {
			return base
		}
		if best == "" {
			best = p.filesystem.Base(path)
		}
	}
	return best
}

func (p *PythonSignal) entryModule(root string, candidates []string) string {
	for _, path := range candidates {
		dir := p.filesystem.Dir(path)
		if p.filesystem.Dir(dir) == root {
			return p.filesystem.Base(dir)
		}
	}
	return ""
}
