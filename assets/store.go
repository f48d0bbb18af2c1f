package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is the assets directory used when none is configured.
const DefaultDir = "assets"

// Store reads the asset directory.
type Store interface {
	// ListMetadataFiles returns metadata file names (not paths) in
	// lexicographic order.
	ListMetadataFiles() ([]string, error)
	// ReadFile reads a file relative to the asset root.
	ReadFile(name string) ([]byte, error)
	// FileExists reports whether a regular file exists relative to the root.
	FileExists(name string) (bool, error)
	// Path returns the on-disk location of name.
	Path(name string) string
	// Size returns the size in bytes of name.
	Size(name string) (int64, error)
}

// DirStore is a Store over a local directory.
type DirStore struct {
	root string
}

// NewDirStore returns a Store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Root returns the directory the store reads from.
func (d *DirStore) Root() string {
	return d.root
}

// ListMetadataFiles implements Store.
func (d *DirStore) ListMetadataFiles() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read assets directory %s: %w", d.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && isJSONFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile implements Store.
func (d *DirStore) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.Path(name))
}

// FileExists implements Store.
func (d *DirStore) FileExists(name string) (bool, error) {
	info, err := os.Stat(d.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Path implements Store.
func (d *DirStore) Path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// Size implements Store.
func (d *DirStore) Size(name string) (int64, error) {
	info, err := os.Stat(d.Path(name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// insideRoot reports whether a relative reference stays inside the root.
func insideRoot(name string) bool {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

var _ Store = (*DirStore)(nil)
