package filesystems

import (
	"errors"
	"iter"
	"strings"
)

// FindFile looks for a file with the given name (case-insensitive) in the specified directory.
// Returns the actual path with correct case if found, empty string if not found.
func FindFile(filesystem FileSystem, dir, filename string) (string, error) {
	return FindFileInEntries(filesystem, dir, filename, filesystem.ReadDir(dir))
}

// FindFileInEntries looks for a file with the given name (case-insensitive) in the provided directory entries.
// Returns the actual path with correct case if found, empty string if not found.
func FindFileInEntries(filesystem FileSystem, dir, filename string, entries iter.Seq2[DirEntry, error]) (string, error) {
	for entry, err := range entries {
		if err != nil {
			return "", err
		}
		if !entry.IsDir() && strings.EqualFold(entry.Name(), filename) {
			return filesystem.Join(dir, entry.Name()), nil
		}
	}

	return "", nil
}

// Exists reports whether name exists. Errors other than "not found" are returned.
func Exists(filesystem FileSystem, name string) (bool, error) {
	_, err := filesystem.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}
	return false, err
}
