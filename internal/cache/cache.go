package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"karolbroda.com/syllecho/internal/logger"
	"karolbroda.com/syllecho/internal/timeline"
)

const (
	cacheVersion      = 1
	defaultTTLDays    = 30
	cacheDirName      = "syllecho"
	timelineCacheName = "timelines"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
	ErrCacheStale   = errors.New("cache stale")
)

// TimelineEntry is one parsed lyrics file plus the per-file sync offset the
// user settled on.
type TimelineEntry struct {
	Version          uint8
	Path             string
	ContentHash      string
	Format           string
	Meta             timeline.Metadata
	Lines            []timeline.Line
	SyncOffsetMillis int64
	CreatedAt        int64
	ExpiresAt        int64
}

// Timeline rebuilds the immutable timeline from the stored lines.
func (e *TimelineEntry) Timeline() *timeline.Timeline {
	return timeline.New(e.Lines, e.Meta)
}

type DiskCache struct {
	basePath string
	mu       sync.RWMutex
	memCache map[string]*TimelineEntry
}

var (
	globalCache     *DiskCache
	globalCacheOnce sync.Once
)

// GetGlobalCache falls back to a memory-only cache when no cache directory
// can be created.
func GetGlobalCache() *DiskCache {
	globalCacheOnce.Do(func() {
		cache, err := NewDiskCache()
		if err != nil {
			logger.Warn("cache: disk cache unavailable, using memory only: %v", err)
			cache = &DiskCache{
				basePath: "",
				memCache: make(map[string]*TimelineEntry),
			}
		}
		globalCache = cache
	})
	return globalCache
}

func NewDiskCache() (*DiskCache, error) {
	cacheDir, err := getCacheDirectory()
	if err != nil {
		return nil, err
	}
	return NewDiskCacheAt(filepath.Join(cacheDir, timelineCacheName))
}

func NewDiskCacheAt(dir string) (*DiskCache, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}

	return &DiskCache{
		basePath: dir,
		memCache: make(map[string]*TimelineEntry),
	}, nil
}

func (c *DiskCache) Dir() string {
	return c.basePath
}

func getCacheDirectory() (string, error) {
	// xdg cache home takes priority
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, cacheDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".cache", cacheDirName), nil
}

// ContentHash identifies a lyrics file's bytes; a cached timeline is only
// reused while it matches.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func generateKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(hash[:12])
}

func (c *DiskCache) getFilePath(key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, key+".bin")
}

func (c *DiskCache) Get(path string) (*TimelineEntry, error) {
	if path == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(path)

	// check memory cache first
	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > time.Now().Unix() {
			return entry, nil
		}
		// expired in memory, remove it
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	// fall back to disk cache
	if c.basePath == "" {
		return nil, ErrCacheMiss
	}

	filePath := c.getFilePath(key)
	entry, err := c.readFromDisk(filePath)
	if err != nil {
		return nil, err
	}

	// validate expiry
	if entry.ExpiresAt <= time.Now().Unix() {
		_ = os.Remove(filePath)
		return nil, ErrCacheExpired
	}

	// populate memory cache
	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	return entry, nil
}

// Lookup returns the cached timeline for path when the file content still
// hashes to contentHash.
func (c *DiskCache) Lookup(path string, contentHash string) (*TimelineEntry, error) {
	entry, err := c.Get(path)
	if err != nil {
		return nil, err
	}
	if entry.ContentHash != contentHash {
		return entry, ErrCacheStale
	}
	return entry, nil
}

func (c *DiskCache) Set(path string, entry *TimelineEntry) error {
	if path == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	key := generateKey(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	// set timestamps
	now := time.Now().Unix()
	entry.Version = cacheVersion
	entry.Path = path
	entry.CreatedAt = now
	entry.ExpiresAt = now + int64(defaultTTLDays*24*60*60)

	// store in memory
	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	// persist to disk
	if c.basePath == "" {
		return nil
	}

	return c.writeToDisk(c.getFilePath(key), entry)
}

// SetSyncOffset stores the user's offset on an existing entry.
func (c *DiskCache) SetSyncOffset(path string, offsetMillis int64) error {
	entry, err := c.Get(path)
	if err != nil {
		return err
	}

	updated := *entry
	updated.SyncOffsetMillis = offsetMillis
	return c.Set(path, &updated)
}

func (c *DiskCache) readFromDisk(filePath string) (*TimelineEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry TimelineEntry
	decoder := gob.NewDecoder(file)
	err = decoder.Decode(&entry)
	if err != nil {
		return nil, ErrCacheCorrupt
	}

	// version mismatch means stale format
	if entry.Version != cacheVersion {
		_ = os.Remove(filePath)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func (c *DiskCache) writeToDisk(filePath string, entry *TimelineEntry) error {
	// write to temp file first, then rename for atomicity
	tmpPath := filePath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	encoder := gob.NewEncoder(file)
	err = encoder.Encode(entry)
	if err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	err = file.Sync()
	if err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	err = file.Close()
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, filePath)
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*TimelineEntry)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".bin") {
			_ = os.Remove(filepath.Join(c.basePath, entry.Name()))
		}
	}

	return nil
}

// Prune removes expired and unreadable entries, and entries whose lyrics
// file no longer exists.
func (c *DiskCache) Prune() (int, error) {
	if c.basePath == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return 0, err
	}

	pruned := 0
	now := time.Now().Unix()

	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".bin") {
			continue
		}

		filePath := filepath.Join(c.basePath, dirEntry.Name())
		entry, err := c.readFromDisk(filePath)
		if err != nil {
			_ = os.Remove(filePath)
			pruned++
			continue
		}

		_, statErr := os.Stat(entry.Path)
		if entry.ExpiresAt <= now || os.IsNotExist(statErr) {
			_ = os.Remove(filePath)
			c.mu.Lock()
			delete(c.memCache, strings.TrimSuffix(dirEntry.Name(), ".bin"))
			c.mu.Unlock()
			pruned++
		}
	}

	return pruned, nil
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	if c.basePath == "" {
		return 0, 0, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return 0, 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bin") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		count++
		sizeBytes += info.Size()
	}

	return count, sizeBytes, nil
}

func (c *DiskCache) ListAll() ([]*TimelineEntry, error) {
	if c.basePath == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []*TimelineEntry

	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".bin") {
			continue
		}

		filePath := filepath.Join(c.basePath, dirEntry.Name())
		entry, err := c.readFromDisk(filePath)
		if err != nil {
			continue
		}

		result = append(result, entry)
	}

	return result, nil
}

func (c *DiskCache) Delete(path string) error {
	if path == "" {
		return errors.New("invalid path")
	}

	key := generateKey(path)

	// remove from memory cache
	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	// remove from disk
	if c.basePath == "" {
		return nil
	}

	filePath := c.getFilePath(key)
	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
