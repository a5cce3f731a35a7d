package sentiment

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// CacheKey builds the canonical (ticker, date, source) cache key.
func CacheKey(ticker string, day time.Time, source string) string {
	return strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(ticker)),
		day.UTC().Format("2006-01-02"),
		strings.ToLower(strings.TrimSpace(source)),
	}, ":")
}

// RunCache memoizes sentiment resolutions for the lifetime of one backtest
// run. Negative results (nil scores) are cached too, so a provider that
// found nothing for a key is not re-queried by another asset sharing the
// same key. The cache is safe for concurrent use during the prefetch phase.
type RunCache struct {
	mu      sync.Mutex
	entries map[string]*Score
}

// NewRunCache returns an empty per-run cache.
func NewRunCache() *RunCache {
	return &RunCache{entries: make(map[string]*Score)}
}

// Lookup returns the cached score and whether the key was present. A (nil,
// true) result means "we already checked; there is no data".
func (c *RunCache) Lookup(key string) (*Score, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	score, ok := c.entries[key]
	return score, ok
}

// Store records a resolution; nil marks a confirmed absence of data.
func (c *RunCache) Store(key string, score *Score) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = score
}

// Len returns the number of cached keys.
func (c *RunCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// snapshotEntry is the wire form of one cache row in diagnostic dumps.
type snapshotEntry struct {
	Key   string `msgpack:"key"`
	Found bool   `msgpack:"found"`
	Score Score  `msgpack:"score"`
}

// Snapshot serializes the cache as a compact msgpack blob for diagnostics,
// ordered by key so dumps are stable.
func (c *RunCache) Snapshot() ([]byte, error) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]snapshotEntry, 0, len(keys))
	for _, k := range keys {
		row := snapshotEntry{Key: k}
		if s := c.entries[k]; s != nil {
			row.Found = true
			row.Score = *s
		}
		rows = append(rows, row)
	}
	c.mu.Unlock()

	data, err := msgpack.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("sentiment: snapshot cache: %w", err)
	}
	return data, nil
}

// RestoreSnapshot decodes a Snapshot blob back into key -> score form,
// primarily for inspecting diagnostic dumps.
func RestoreSnapshot(data []byte) (map[string]*Score, error) {
	var rows []snapshotEntry
	if err := msgpack.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("sentiment: decode cache snapshot: %w", err)
	}
	out := make(map[string]*Score, len(rows))
	for _, row := range rows {
		if row.Found {
			score := row.Score
			out[row.Key] = &score
		} else {
			out[row.Key] = nil
		}
	}
	return out, nil
}
