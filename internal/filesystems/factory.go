package filesystems

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// NewFileSystem creates a filesystem implementation based on the given URI.
// Supports plain paths and file:///path/to/local/dir. Provisioning always
// runs against the tree inside the image, so remote schemes are rejected.
func NewFileSystem(uri string) (FileSystem, error) {
	if !strings.Contains(uri, "://") {
		if _, err := filepath.Abs(uri); err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %s: %w", uri, err)
		}
		return NewLocalFS(), nil
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid URI %s: %w", uri, err)
	}

	switch parsedURL.Scheme {
	case "file":
		return NewLocalFS(), nil
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
}

// GetBasePath returns the base path for the given URI
func GetBasePath(uri string) string {
	if !strings.Contains(uri, "://") {
		return uri
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return uri
	}

	if parsedURL.Scheme == "file" {
		return parsedURL.Path
	}
	return uri
}
