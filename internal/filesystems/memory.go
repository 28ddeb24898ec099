package filesystems

import (
	"fmt"
	"io/fs"
	"iter"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFS implements FileSystem for in-memory filesystem operations
type MemoryFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemoryFS creates a new MemoryFS instance
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// AddFile adds a file to the memory filesystem
func (mfs *MemoryFS) AddFile(name string, content []byte) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.addFile(name, content)
}

// AddDir adds a directory to the memory filesystem
func (mfs *MemoryFS) AddDir(name string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.addDir(name)
}

func (mfs *MemoryFS) addFile(name string, content []byte) {
	clean := path.Clean(name)
	mfs.files[clean] = content
	mfs.addParents(clean)
}

func (mfs *MemoryFS) addDir(name string) {
	clean := path.Clean(name)
	if clean != "." && clean != "/" {
		mfs.dirs[clean] = true
	}
	mfs.addParents(clean)
}

func (mfs *MemoryFS) addParents(name string) {
	dir := path.Dir(name)
	for dir != "." && dir != "/" {
		mfs.dirs[dir] = true
		dir = path.Dir(dir)
	}
}

func (mfs *MemoryFS) ReadFile(name string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	content, exists := mfs.files[path.Clean(name)]
	if !exists {
		return nil, fmt.Errorf("file not found: %s: %w", name, fs.ErrNotExist)
	}
	return content, nil
}

func (mfs *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	clean := path.Clean(name)
	if mfs.dirs[clean] {
		return fmt.Errorf("is a directory: %s", name)
	}
	mfs.addFile(clean, append([]byte(nil), data...))
	return nil
}

func (mfs *MemoryFS) Remove(name string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	clean := path.Clean(name)
	if _, ok := mfs.files[clean]; ok {
		delete(mfs.files, clean)
		return nil
	}
	if mfs.dirs[clean] {
		prefix := clean + "/"
		for p := range mfs.files {
			if strings.HasPrefix(p, prefix) {
				return fmt.Errorf("directory not empty: %s", name)
			}
		}
		for p := range mfs.dirs {
			if strings.HasPrefix(p, prefix) {
				return fmt.Errorf("directory not empty: %s", name)
			}
		}
		delete(mfs.dirs, clean)
		return nil
	}
	return fmt.Errorf("remove %s: %w", name, fs.ErrNotExist)
}

func (mfs *MemoryFS) MkdirAll(name string, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	clean := path.Clean(name)
	if _, isFile := mfs.files[clean]; isFile {
		return fmt.Errorf("mkdir %s: not a directory", name)
	}
	for dir := path.Dir(clean); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, isFile := mfs.files[dir]; isFile {
			return fmt.Errorf("mkdir %s: %s is not a directory", name, dir)
		}
	}
	mfs.addDir(clean)
	return nil
}

func (mfs *MemoryFS) Stat(name string) (FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return mfs.stat(path.Clean(name))
}

func (mfs *MemoryFS) stat(clean string) (FileInfo, error) {
	if clean == "." || clean == "/" || mfs.dirs[clean] {
		return newMemoryDirInfo(path.Base(clean)), nil
	}
	if content, ok := mfs.files[clean]; ok {
		return newMemoryFileInfo(path.Base(clean), content), nil
	}
	return nil, fmt.Errorf("stat %s: %w", clean, fs.ErrNotExist)
}

// children returns the sorted direct children of a cleaned directory path
func (mfs *MemoryFS) children(cleanName string) []string {
	prefix := cleanName + "/"
	switch cleanName {
	case ".":
		prefix = ""
	case "/":
		prefix = "/"
	}

	seen := make(map[string]bool)
	entries := make([]string, 0)
	collect := func(p string) {
		if prefix != "" && !strings.HasPrefix(p, prefix) {
			return
		}
		remainder := strings.TrimPrefix(p, prefix)
		if remainder == "" {
			return
		}
		child := strings.SplitN(remainder, "/", 2)[0]
		if child != "" && !seen[child] {
			seen[child] = true
			entries = append(entries, child)
		}
	}

	for filePath := range mfs.files {
		collect(filePath)
	}
	for dirPath := range mfs.dirs {
		collect(dirPath)
	}

	sort.Strings(entries)
	return entries
}

func (mfs *MemoryFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		mfs.mu.RLock()
		cleanName := path.Clean(name)
		if cleanName != "." && cleanName != "/" && !mfs.dirs[cleanName] {
			mfs.mu.RUnlock()
			yield(nil, fmt.Errorf("directory not found: %s: %w", name, fs.ErrNotExist))
			return
		}

		var entries []DirEntry
		for _, child := range mfs.children(cleanName) {
			fullPath := child
			if cleanName != "." {
				fullPath = path.Join(cleanName, child)
			}
			info, err := mfs.stat(fullPath)
			if err != nil {
				// Only implicit parents end up here
				info = newMemoryDirInfo(child)
			}
			entries = append(entries, &memoryDirEntry{info: info})
		}
		mfs.mu.RUnlock()

		for _, entry := range entries {
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (mfs *MemoryFS) Walk(root string, fn WalkFunc) error {
	var walk func(string) error
	walk = func(p string) error {
		info, err := mfs.Stat(p)
		if err != nil {
			return fn(p, nil, err)
		}

		if err := fn(p, info, nil); err != nil {
			if err == SkipDir && info.IsDir() {
				return nil
			}
			return err
		}

		if !info.IsDir() {
			return nil
		}

		for entry, err := range mfs.ReadDir(p) {
			if err != nil {
				return fn(p, info, err)
			}
			if err := walk(path.Join(p, entry.Name())); err != nil {
				return err
			}
		}
		return nil
	}

	return walk(path.Clean(root))
}

func (mfs *MemoryFS) Join(elem ...string) string {
	return path.Join(elem...)
}

func (mfs *MemoryFS) Base(p string) string {
	return path.Base(p)
}

func (mfs *MemoryFS) Dir(p string) string {
	return path.Dir(p)
}

func (mfs *MemoryFS) Rel(basepath, targpath string) (string, error) {
	base := path.Clean(basepath)
	target := path.Clean(targpath)

	if base == target {
		return ".", nil
	}
	if base == "." {
		return target, nil
	}
	if strings.HasPrefix(target, base+"/") {
		return strings.TrimPrefix(target, base+"/"), nil
	}
	return "", fmt.Errorf("Rel: can't make %s relative to %s", targpath, basepath)
}

// memoryDirEntry implements DirEntry for memory filesystem
type memoryDirEntry struct {
	info FileInfo
}

func (e *memoryDirEntry) Name() string { return e.info.Name() }

func (e *memoryDirEntry) IsDir() bool { return e.info.IsDir() }

func (e *memoryDirEntry) Type() fs.FileMode { return e.info.Mode().Type() }

func (e *memoryDirEntry) Info() (FileInfo, error) { return e.info, nil }

// memoryFileInfo implements FileInfo for memory filesystem
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func newMemoryDirInfo(name string) *memoryFileInfo {
	return &memoryFileInfo{name: name, mode: fs.ModeDir | 0755, modTime: time.Now(), isDir: true}
}

func newMemoryFileInfo(name string, content []byte) *memoryFileInfo {
	return &memoryFileInfo{name: name, size: int64(len(content)), mode: 0644, modTime: time.Now()}
}

func (fi *memoryFileInfo) Name() string { return fi.name }

func (fi *memoryFileInfo) Size() int64 { return fi.size }

func (fi *memoryFileInfo) Mode() fs.FileMode { return fi.mode }

func (fi *memoryFileInfo) ModTime() time.Time { return fi.modTime }

func (fi *memoryFileInfo) IsDir() bool { return fi.isDir }

func (fi *memoryFileInfo) Sys() interface{} { return nil }
