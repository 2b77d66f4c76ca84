// Package cache stores detected cut lists in a JSON file so repeated runs over
// the same video with the same detector settings skip decoding.
//
// Entries are keyed by the video's absolute path, size and modification time
// together with a description of the detection settings. Editing or replacing
// the video therefore invalidates its entries.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"face-scenes/domain/detection"
)

// Entry is one cached cut list
type Entry struct {
	Key      string    `json:"key"`
	Video    string    `json:"video"`
	Settings string    `json:"settings"`
	Cuts     []int     `json:"cuts"`
	Terminal int       `json:"terminal"`
	FPS      float64   `json:"fps"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache provides thread-safe access to the cut list cache
type Cache struct {
	path    string
	logger  *zap.Logger
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewCache creates a cache backed by the JSON file at path. An empty path
// makes every operation a no-op. The file is created on the first Store.
func NewCache(path string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		path:    path,
		logger:  logger.With(zap.String("component", "cutcache")),
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		c.logger.Warn("failed to load cut cache, starting empty", zap.String("path", path), zap.Error(err))
	}
	return c
}

// Key identifies a video file version and a detection configuration
func Key(videoPath, settings string) (string, error) {
	abs, err := filepath.Abs(videoPath)
	if err != nil {
		return "", fmt.Errorf("resolve video path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat video: %w", err)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%s", abs, info.Size(), info.ModTime().UnixNano(), settings)))
	return hex.EncodeToString(sum[:]), nil
}

// Lookup implements detection.CutCache
func (c *Cache) Lookup(videoPath, settings string) (detection.CutList, bool, error) {
	if c.path == "" {
		return detection.CutList{}, false, nil
	}
	key, err := Key(videoPath, settings)
	if err != nil {
		return detection.CutList{}, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return detection.CutList{}, false, nil
	}
	return detection.CutList{
		Cuts:     append([]int(nil), entry.Cuts...),
		Terminal: entry.Terminal,
		FPS:      entry.FPS,
	}, true, nil
}

// Store implements detection.CutCache
func (c *Cache) Store(videoPath, settings string, list detection.CutList) error {
	if c.path == "" {
		return nil
	}
	key, err := Key(videoPath, settings)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		Key:      key,
		Video:    videoPath,
		Settings: settings,
		Cuts:     append([]int(nil), list.Cuts...),
		Terminal: list.Terminal,
		FPS:      list.FPS,
		CachedAt: c.now(),
	}
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached cut list",
		zap.String("video", videoPath),
		zap.String("settings", settings),
		zap.Int("cuts", len(list.Cuts)))
	return nil
}

// Clear removes all entries and persists the empty cache
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Count returns the number of entries in the cache
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for _, entry := range entries {
		if entry.Key != "" {
			c.entries[entry.Key] = entry
		}
	}
	return nil
}

// save writes the cache to disk atomically
func (c *Cache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Ensure Cache implements detection.CutCache
var _ detection.CutCache = (*Cache)(nil)
