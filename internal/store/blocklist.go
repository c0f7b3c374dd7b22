// Package store keeps in-memory state shared between acquisitions.
package store

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SourceBlocklist remembers source URLs that produced unusable audio so that
// providers can skip them on later requests. It is bounded: the least recently
// reported sources are forgotten first.
type SourceBlocklist struct {
	mutex             sync.RWMutex
	bloom             *bloom.BloomFilter
	entries           *lru.Cache[string, time.Time]
	capacity          int
	falsePositiveRate float64
	// stale counts entries that left the LRU but are still set in the bloom filter.
	stale int
}

// NewSourceBlocklist creates a blocklist holding up to capacity sources.
func NewSourceBlocklist(capacity int, falsePositiveRate float64) *SourceBlocklist {
	if capacity <= 0 {
		panic("blocklist capacity must be positive")
	}

	b := &SourceBlocklist{
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
	}
	b.entries, _ = lru.NewWithEvict[string, time.Time](capacity, func(string, time.Time) {
		b.stale++
	})

	return b
}

// Has reports whether sourceURL was blocked.
func (b *SourceBlocklist) Has(sourceURL string) bool {
	key := normalizeSourceURL(sourceURL)
	if key == "" {
		return false
	}

	b.mutex.RLock()
	defer b.mutex.RUnlock()

	if !b.bloom.TestString(key) {
		return false
	}
	return b.entries.Contains(key)
}

// Add blocks sourceURL.
func (b *SourceBlocklist) Add(sourceURL string) {
	key := normalizeSourceURL(sourceURL)
	if key == "" {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.entries.Add(key, time.Now())
	b.bloom.AddString(key)

	if b.stale >= b.capacity {
		b.rebuild()
	}
}

// Remove unblocks sourceURL.
func (b *SourceBlocklist) Remove(sourceURL string) {
	key := normalizeSourceURL(sourceURL)

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.entries.Remove(key)
}

// Size returns the number of blocked sources.
func (b *SourceBlocklist) Size() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.entries.Len()
}

// Clear forgets every blocked source.
func (b *SourceBlocklist) Clear() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.entries.Purge()
	b.bloom = bloom.NewWithEstimates(uint(b.capacity), b.falsePositiveRate)
	b.stale = 0
}

// rebuild resets the bloom filter to the live entries. Callers hold the write lock.
func (b *SourceBlocklist) rebuild() {
	b.bloom = bloom.NewWithEstimates(uint(b.capacity), b.falsePositiveRate)
	for _, key := range b.entries.Keys() {
		b.bloom.AddString(key)
	}
	b.stale = 0
}

// normalizeSourceURL lowercases scheme and host and drops the fragment so the
// same file linked twice maps to one key.
func normalizeSourceURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
