package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ErrItemTooLarge is returned when a single entry exceeds the capacity.
var ErrItemTooLarge = errors.New("item exceeds cache capacity")

const (
	compressedExt = ".zst"
	rawExt        = ".raw"

	// Entries smaller than this are stored as is.
	minCompressSize = 1024
)

// Stats describes the cache contents.
type Stats struct {
	Dir       string
	Items     int
	Size      int64 // bytes on disk
	Capacity  int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns the fraction of lookups that were hits.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// DiskCache is a size-bounded audio cache in a single directory.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*entry // by file stem

	mu    sync.Mutex
	stats Stats
}

type entry struct {
	path       string
	size       int64
	lastAccess time.Time
	compressed bool
}

// Key derives a cache key from the parts that determine the audio, such as
// engine, voice, rate and text.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

// NewDiskCache opens the cache in dir, creating it if needed. A compression
// level of 0 disables compression.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*entry),
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Entries written with compression stay readable when it is turned off.
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc.decoder = decoder

	if err := dc.scan(); err != nil {
		return nil, err
	}
	return dc, nil
}

// Get returns the audio stored under key.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	e, ok := dc.index[stem(key)]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(e.path)
	if err == nil && e.compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		dc.remove(stem(key), e)
		dc.stats.Misses++
		return nil, false
	}

	now := time.Now()
	e.lastAccess = now
	_ = os.Chtimes(e.path, now, now)
	dc.stats.Hits++
	return data, true
}

// Put stores data under key, evicting old entries as needed.
func (dc *DiskCache) Put(key string, data []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	payload, compressed := data, false
	if dc.encoder != nil && len(data) > minCompressSize {
		if enc := dc.encoder.EncodeAll(data, nil); len(enc) < len(data) {
			payload, compressed = enc, true
		}
	}

	size := int64(len(payload))
	if size > dc.capacity {
		return ErrItemTooLarge
	}

	s := stem(key)
	if old, ok := dc.index[s]; ok {
		dc.remove(s, old)
	}
	for dc.size+size > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	ext := rawExt
	if compressed {
		ext = compressedExt
	}
	path := filepath.Join(dc.dir, s+ext)
	if err := writeFile(path, payload); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	dc.index[s] = &entry{path: path, size: size, lastAccess: time.Now(), compressed: compressed}
	dc.size += size
	return nil
}

// Clear removes every entry.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	var errs []error
	for s, e := range dc.index {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
		delete(dc.index, s)
	}
	dc.size = 0
	return errors.Join(errs...)
}

// Stats returns the cache statistics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	st := dc.stats
	st.Dir = dc.dir
	st.Items = len(dc.index)
	st.Size = dc.size
	st.Capacity = dc.capacity
	return st
}

// Close releases the compression resources.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.encoder != nil {
		_ = dc.encoder.Close()
	}
	dc.decoder.Close()
	return nil
}

// scan rebuilds the index from the files in the cache directory.
func (dc *DiskCache) scan() error {
	entries, err := os.ReadDir(dc.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, de := range entries {
		name := de.Name()
		ext := filepath.Ext(name)
		if de.IsDir() || (ext != compressedExt && ext != rawExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		dc.index[strings.TrimSuffix(name, ext)] = &entry{
			path:       filepath.Join(dc.dir, name),
			size:       info.Size(),
			lastAccess: info.ModTime(),
			compressed: ext == compressedExt,
		}
		dc.size += info.Size()
	}
	return nil
}

func (dc *DiskCache) remove(s string, e *entry) {
	_ = os.Remove(e.path)
	dc.size -= e.size
	delete(dc.index, s)
}

func (dc *DiskCache) evictOldest() {
	var oldest string
	var oldestTime time.Time
	for s, e := range dc.index {
		if oldest == "" || e.lastAccess.Before(oldestTime) {
			oldest = s
			oldestTime = e.lastAccess
		}
	}
	if oldest != "" {
		dc.remove(oldest, dc.index[oldest])
		dc.stats.Evictions++
	}
}

func stem(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:16])
}

// writeFile writes to a temp file and renames it into place.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
