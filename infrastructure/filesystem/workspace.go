package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/gofrs/flock"

	"face-scenes/domain/export"
)

// ErrLocked is returned when another export holds the directory lock
var ErrLocked = errors.New("output directory is in use by another export")

// Workspace implements export.Workspace using the os package
type Workspace struct {
	lockDir string
}

// NewWorkspace creates a workspace keeping lock files in lockDir (os.TempDir() when empty)
func NewWorkspace(lockDir string) *Workspace {
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	return &Workspace{lockDir: lockDir}
}

// Matching returns the names of regular files in dir whose names match pattern.
// A missing directory has no matches.
func (w *Workspace) Matching(dir string, pattern *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Ensure creates dir and its parents if missing
func (w *Workspace) Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Exists returns true if the file exists
func (w *Workspace) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes path; a missing file is not an error
func (w *Workspace) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Size returns the file size in bytes, or 0 if it cannot be read
func (w *Workspace) Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Lock takes an exclusive, non-blocking lock for dir. The lock file lives
// outside dir so the directory only ever holds exported clips.
func (w *Workspace) Lock(dir string) (func() error, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(w.lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	sum := sha256.Sum256([]byte(abs))
	path := filepath.Join(w.lockDir, "face-scenes-"+hex.EncodeToString(sum[:8])+".lock")

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	return func() error {
		// The lock file stays so every holder locks the same inode
		if err := lock.Unlock(); err != nil {
			return fmt.Errorf("failed to unlock %s: %w", dir, err)
		}
		return nil
	}, nil
}

// Ensure Workspace implements export.Workspace
var _ export.Workspace = (*Workspace)(nil)
