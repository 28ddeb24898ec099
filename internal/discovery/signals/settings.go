package signals

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/railwayapp/launchpad/internal/discovery/types"
	"github.com/railwayapp/launchpad/internal/filesystems"
)

// SettingsSignal reads a Django settings module for the variables it cannot
// start without and the output directories it writes to.
type SettingsSignal struct {
	fileSignal
}

func NewSettingsSignal(filesystem filesystems.FileSystem) *SettingsSignal {
	return &SettingsSignal{fileSignal: newFileSignal(filesystem, "settings.py")}
}

func (s *SettingsSignal) Confidence() int {
	return 60 // Medium confidence - usage patterns, not a deployment config
}

var (
	// os.environ["NAME"] raises at import time when NAME is unset.
	requiredLookup = regexp.MustCompile(`os\.environ\[\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]\s*\]`)

	// os.environ.get("PORT", "8000") or os.getenv("PORT", "8000")
	portDefault = regexp.MustCompile(`os\.(?:environ\.get|getenv)\(\s*['"]PORT['"]\s*,\s*['"]?(\d+)['"]?\s*\)`)

	// STATIC_ROOT = BASE_DIR / "staticfiles" or os.path.join(BASE_DIR, "staticfiles")
	outputRoot = regexp.MustCompile(`^(STATIC_ROOT|MEDIA_ROOT)\s*=\s*(?:\w+\s*/\s*['"]([^'"]+)['"]|os\.path\.join\(\s*\w+\s*,\s*['"]([^'"]+)['"]\s*\))`)
)

func (s *SettingsSignal) Suggest(ctx context.Context) ([]types.Suggestion, error) {
	path := s.first()
	if path == "" {
		return nil, nil
	}

	content, err := s.filesystem.ReadFile(path)
	if err != nil {
		return nil, err
	}

	suggestion := types.Suggestion{
		Source:     types.ConfigRef{Type: "django-settings", Path: path},
		Confidence: s.Confidence(),
	}

	required := make(map[string]bool)
	roots := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, match := range requiredLookup.FindAllStringSubmatch(line, -1) {
			required[match[1]] = true
		}
		if match := portDefault.FindStringSubmatch(line); match != nil {
			if port, err := strconv.Atoi(match[1]); err == nil {
				suggestion.DefaultPort = port
			}
		}
		if match := outputRoot.FindStringSubmatch(line); match != nil {
			dir := match[2]
			if dir == "" {
				dir = match[3]
			}
			roots[match[1]] = dir
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for name := range required {
		suggestion.Required = append(suggestion.Required, name)
	}
	sort.Strings(suggestion.Required)

	// Both roots are needed, or the recipe would lose one of its directories.
	if roots["STATIC_ROOT"] != "" && roots["MEDIA_ROOT"] != "" {
		suggestion.Directories = []string{roots["STATIC_ROOT"], roots["MEDIA_ROOT"]}
	}

	return []types.Suggestion{suggestion}, nil
}
