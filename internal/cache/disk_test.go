package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pcm(n int) []byte {
	// Repetitive data compresses well.
	return bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, n/4)
}

func TestDiskCachePutGet(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	tests := []struct {
		name string
		data []byte
	}{
		{"small", []byte("tiny")},
		{"compressible", pcm(64 * 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := Key("piper", "en_US-lessac-medium", "1", tt.name)
			if err := dc.Put(key, tt.data); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, ok := dc.Get(key)
			if !ok {
				t.Fatal("Expected a hit")
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("Expected %d bytes back, got %d", len(tt.data), len(got))
			}
		})
	}

	st := dc.Stats()
	if st.Items != 2 {
		t.Errorf("Expected 2 items, got %d", st.Items)
	}
	if st.Size >= int64(64*1024) {
		t.Errorf("Expected compressed size below the raw size, got %d", st.Size)
	}
}

func TestDiskCacheMiss(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	if _, ok := dc.Get(Key("missing")); ok {
		t.Error("Expected a miss")
	}
	st := dc.Stats()
	if st.Misses != 1 || st.Hits != 0 {
		t.Errorf("Expected 1 miss and 0 hits, got %d and %d", st.Misses, st.Hits)
	}
	if st.HitRate() != 0 {
		t.Errorf("Expected hit rate 0, got %v", st.HitRate())
	}
}

func TestDiskCacheEviction(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 3000, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	data := make([]byte, 1000)
	for _, k := range []string{"a", "b", "c"} {
		if err := dc.Put(Key(k), data); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Touch "a" so "b" becomes the oldest.
	if _, ok := dc.Get(Key("a")); !ok {
		t.Fatal("Expected a hit for a")
	}
	if err := dc.Put(Key("d"), data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, ok := dc.Get(Key("b")); ok {
		t.Error("Expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := dc.Get(Key(k)); !ok {
			t.Errorf("Expected %s to be kept", k)
		}
	}
	if ev := dc.Stats().Evictions; ev != 1 {
		t.Errorf("Expected 1 eviction, got %d", ev)
	}
}

func TestDiskCacheTooLarge(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 10, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	if err := dc.Put(Key("big"), make([]byte, 11)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Expected ErrItemTooLarge, got %v", err)
	}
}

func TestDiskCacheReopen(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	data := pcm(8192)
	if err := dc.Put(Key("persisted"), data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	dc.Close()

	// Reopen without compression: old entries must still decode.
	dc, err = NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	got, ok := dc.Get(Key("persisted"))
	if !ok || !bytes.Equal(got, data) {
		t.Error("Expected entry to survive a reopen")
	}
}

func TestDiskCacheClear(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	_ = dc.Put(Key("x"), []byte("x"))
	_ = dc.Put(Key("y"), []byte("y"))

	if err := dc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if st := dc.Stats(); st.Items != 0 || st.Size != 0 {
		t.Errorf("Expected an empty cache, got %d items and %d bytes", st.Items, st.Size)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(files) != 0 {
		t.Errorf("Expected no files left, got %v", files)
	}
}

func TestDiskCacheIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	if st := dc.Stats(); st.Items != 0 {
		t.Errorf("Expected foreign files to be ignored, got %d items", st.Items)
	}
}

func TestKey(t *testing.T) {
	if Key("a", "bc") == Key("ab", "c") {
		t.Error("Expected part boundaries to affect the key")
	}
	if Key("a", "b") != Key("a", "b") {
		t.Error("Expected keys to be deterministic")
	}
}
