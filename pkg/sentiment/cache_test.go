package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	key := CacheKey(" aapl ", time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC), " Reddit ")
	assert.Equal(t, "AAPL:2024-03-05:reddit", key)
}

func TestRunCacheNegativeEntries(t *testing.T) {
	cache := NewRunCache()
	key := CacheKey("TSLA", day(2024, 3, 1), CategoryNews)

	_, hit := cache.Lookup(key)
	assert.False(t, hit)

	cache.Store(key, nil)
	score, hit := cache.Lookup(key)
	assert.True(t, hit)
	assert.Nil(t, score)
	assert.Equal(t, 1, cache.Len())
}

func TestRunCacheSnapshotRoundTrip(t *testing.T) {
	cache := NewRunCache()
	cache.Store("AAPL:2024-03-01:reddit", &Score{Value: 0.25, Items: 12})
	cache.Store("TSLA:2024-03-01:news", nil)

	blob, err := cache.Snapshot()
	require.NoError(t, err)

	restored, err := RestoreSnapshot(blob)
	require.NoError(t, err)
	require.Len(t, restored, 2)

	require.NotNil(t, restored["AAPL:2024-03-01:reddit"])
	assert.Equal(t, 0.25, restored["AAPL:2024-03-01:reddit"].Value)
	assert.Equal(t, 12, restored["AAPL:2024-03-01:reddit"].Items)

	score, ok := restored["TSLA:2024-03-01:news"]
	assert.True(t, ok)
	assert.Nil(t, score)
}
