package signals

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
	"mvdan.cc/sh/v3/syntax"
)

// fileSignal records every file matching one of names, shallowest first.
type fileSignal struct {
	filesystem filesystems.FileSystem
	names      []string
	paths      []string
}

func newFileSignal(filesystem filesystems.FileSystem, names ...string) fileSignal {
	return fileSignal{filesystem: filesystem, names: names}
}

func (f *fileSignal) Reset() {
	f.paths = nil
}

func (f *fileSignal) ObserveEntry(ctx context.Context, dir string, entry filesystems.DirEntry) error {
	if entry.IsDir() {
		return nil
	}
	for _, name := range f.names {
		if strings.EqualFold(entry.Name(), name) {
			f.paths = append(f.paths, f.filesystem.Join(dir, entry.Name()))
			return nil
		}
	}
	return nil
}

// first returns the shallowest match, honoring the order of names within a
// directory.
func (f *fileSignal) first() string {
	if len(f.paths) == 0 {
		return ""
	}
	best := f.paths[0]
	bestDir := f.filesystem.Dir(best)
	for _, p := range f.paths[1:] {
		if f.filesystem.Dir(p) != bestDir {
			break
		}
		if f.rank(p) < f.rank(best) {
			best = p
		}
	}
	return best
}

func (f *fileSignal) rank(p string) int {
	base := f.filesystem.Base(p)
	for i, name := range f.names {
		if strings.EqualFold(base, name) {
			return i
		}
	}
	return len(f.names)
}

// joinArgs renders an argument vector as a shell command line.
func joinArgs(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangPOSIX)
		if err != nil {
			q = strconv.Quote(arg)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " ")
}

// call is one simple command found in a shell script.
type call struct {
	// Lits holds the literal value of each word, "" when the word is not a
	// plain literal.
	Lits []string
	// Words holds each word as written.
	Words []string
}

// Text renders the call from word start onwards.
func (c call) Text(start int) string {
	if start >= len(c.Words) {
		return ""
	}
	return strings.Join(c.Words[start:], " ")
}

func (c call) has(lit string) bool {
	for _, l := range c.Lits {
		if l == lit {
			return true
		}
	}
	return false
}

// program returns the index of the program word, skipping exec.
func (c call) program() int {
	if len(c.Lits) > 1 && c.Lits[0] == "exec" {
		return 1
	}
	return 0
}

func (c call) name() string {
	i := c.program()
	if i >= len(c.Lits) {
		return ""
	}
	return c.Lits[i]
}

// scriptCalls parses script and returns its simple commands in order.
func scriptCalls(script string) ([]call, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		return nil, err
	}

	printer := syntax.NewPrinter()
	var calls []call
	syntax.Walk(file, func(node syntax.Node) bool {
		ce, ok := node.(*syntax.CallExpr)
		if !ok || len(ce.Args) == 0 {
			return true
		}
		var c call
		for _, word := range ce.Args {
			var buf bytes.Buffer
			if err := printer.Print(&buf, word); err != nil {
				return true
			}
			c.Words = append(c.Words, buf.String())
			c.Lits = append(c.Lits, word.Lit())
		}
		calls = append(calls, c)
		return true
	})
	return calls, nil
}

// parameterizeServe replaces a literal listen host and port in a serve
// command with $HOST and $PORT, returning the port it replaced.
func parameterizeServe(c call) (string, int) {
	words := append([]string(nil), c.Words...)
	port := 0

	for i := c.program(); i < len(c.Lits)-1; i++ {
		flag, value := c.Lits[i], c.Lits[i+1]
		switch flag {
		case "-p", "--port":
			if n, err := strconv.Atoi(value); err == nil {
				port = n
				words[i+1] = "$PORT"
			}
		case "-b", "--bind", "--host":
			// Values that already expand variables are left as written.
			if value == "" {
				continue
			}
			host, p, found := strings.Cut(value, ":")
			if host != "0.0.0.0" && host != "" {
				continue
			}
			if !found {
				words[i+1] = "$HOST"
				continue
			}
			if n, err := strconv.Atoi(p); err == nil {
				port = n
				words[i+1] = "$HOST:$PORT"
			}
		}
	}

	return strings.Join(words[c.program():], " "), port
}

var servers = map[string]bool{
	"daphne": true, "gunicorn": true, "uvicorn": true, "hypercorn": true,
	"waitress-serve": true,
}

// isMigrate reports whether the call applies schema migrations.
func isMigrate(c call) bool {
	switch c.name() {
	case "python", "python3":
		return c.has("manage.py") && c.has("migrate")
	case "alembic":
		return c.has("upgrade")
	case "migrate", "flask":
		return c.has("up") || c.has("upgrade")
	}
	return false
}

func isCollectStatic(c call) bool {
	return c.has("collectstatic")
}

func isServe(c call) bool {
	if servers[c.name()] {
		return true
	}
	return (c.name() == "python" || c.name() == "python3") && c.has("manage.py") && c.has("runserver")
}

// applyScript reads migrate, collect-static and serve commands out of a
// script into s.
func applyScript(script string, s *types.Suggestion) error {
	calls, err := scriptCalls(script)
	if err != nil {
		return err
	}
	for _, c := range calls {
		switch {
		case isMigrate(c):
			s.MigrateCommand = c.Text(c.program())
		case isCollectStatic(c):
			s.StaticCommand = c.Text(c.program())
		case isServe(c):
			serve, port := parameterizeServe(c)
			s.ServeCommand = serve
			if port > 0 && s.DefaultPort == 0 {
				s.DefaultPort = port
			}
		}
	}
	return nil
}

// serveCommand returns the serve command found in script, or the script
// itself when no known server is started by it.
func serveCommand(script string, s *types.Suggestion) {
	if err := applyScript(script, s); err != nil || s.ServeCommand == "" {
		s.ServeCommand = strings.TrimSpace(script)
	}
}
