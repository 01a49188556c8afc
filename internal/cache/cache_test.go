package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/avjpl/gallery-assets-json-generation/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listURL = "https://res.cloudinary.com/avjpl/image/list/s--h3VXHJGY--/birds.json"

func newMemoryCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// TestGenerateKey tests cache key generation
func TestGenerateKey(t *testing.T) {
	key := GenerateKey(listURL)
	assert.Len(t, key, 64)
	assert.Equal(t, key, GenerateKey(listURL))

	t.Run("equivalent urls share a key", func(t *testing.T) {
		assert.Equal(t, key, GenerateKey("https://RES.cloudinary.com:443/avjpl/image/list/s--h3VXHJGY--/birds.json#top"))
	})

	t.Run("signature is part of the key", func(t *testing.T) {
		assert.NotEqual(t, key, GenerateKey("https://res.cloudinary.com/avjpl/image/list/s--OTHERSIG--/birds.json"))
	})
}

func TestListingKey(t *testing.T) {
	key := ListingKey(listURL)
	assert.Equal(t, "listing:"+GenerateKey(listURL), key)
}

// TestNormalizeForKey tests URL normalization
func TestNormalizeForKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normalizes to lowercase host",
			input:    "https://RES.Cloudinary.COM/avjpl/birds.json",
			expected: "https://res.cloudinary.com/avjpl/birds.json",
		},
		{
			name:     "removes default port",
			input:    "http://localhost:80/avjpl/birds.json",
			expected: "http://localhost/avjpl/birds.json",
		},
		{
			name:     "keeps custom port",
			input:    "http://127.0.0.1:8080/avjpl/birds.json",
			expected: "http://127.0.0.1:8080/avjpl/birds.json",
		},
		{
			name:     "removes fragment",
			input:    "https://res.cloudinary.com/avjpl/birds.json#x",
			expected: "https://res.cloudinary.com/avjpl/birds.json",
		},
		{
			name:     "empty path becomes root",
			input:    "https://res.cloudinary.com",
			expected: "https://res.cloudinary.com/",
		},
		{
			name:     "cleans path",
			input:    "https://res.cloudinary.com/avjpl/./image/../birds.json",
			expected: "https://res.cloudinary.com/avjpl/birds.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeForKey(tt.input))
		})
	}
}

// TestNewBadgerCache tests creating cache
func TestNewBadgerCache(t *testing.T) {
	t.Run("creates in-memory cache", func(t *testing.T) {
		c, err := NewBadgerCache(Options{InMemory: true})
		require.NoError(t, err)
		assert.NoError(t, c.Close())
	})

	t.Run("creates file-based cache", func(t *testing.T) {
		dir := t.TempDir() + "/nested/cache"
		c, err := NewBadgerCache(Options{Directory: dir})
		require.NoError(t, err)
		require.NoError(t, c.Set(context.Background(), listURL, []byte(`{"resources":[]}`), time.Hour))
		require.NoError(t, c.Close())

		reopened, err := NewBadgerCache(Options{Directory: dir})
		require.NoError(t, err)
		defer reopened.Close()

		value, err := reopened.Get(context.Background(), listURL)
		require.NoError(t, err)
		assert.JSONEq(t, `{"resources":[]}`, string(value))
	})

	t.Run("requires a directory when on disk", func(t *testing.T) {
		_, err := NewBadgerCache(Options{})
		assert.Error(t, err)
	})

	t.Run("routes badger logs to the logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := utils.NewLogger(utils.LoggerOptions{Level: "debug", Format: "json", Output: &buf})

		c, err := NewBadgerCache(Options{Directory: t.TempDir(), Logger: logger})
		require.NoError(t, err)
		require.NoError(t, c.Close())

		assert.Contains(t, buf.String(), `"component":"cache"`)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c, err := NewBadgerCache(Options{Directory: t.TempDir()})
		require.NoError(t, err)
		assert.NoError(t, c.Close())
		assert.NoError(t, c.Close())
	})
}

// TestBadgerCache_Get tests getting values from cache
func TestBadgerCache_Get(t *testing.T) {
	t.Run("returns cache miss for missing key", func(t *testing.T) {
		c := newMemoryCache(t)

		value, err := c.Get(context.Background(), listURL)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
		assert.Nil(t, value)
	})

	t.Run("retrieves stored value", func(t *testing.T) {
		c := newMemoryCache(t)
		ctx := context.Background()
		body := []byte(`{"resources":[{"public_id":"Photos/birds/sparrow01"}]}`)

		require.NoError(t, c.Set(ctx, listURL, body, time.Hour))

		retrieved, err := c.Get(ctx, listURL)
		require.NoError(t, err)
		assert.Equal(t, body, retrieved)
	})

	t.Run("honours a cancelled context", func(t *testing.T) {
		c := newMemoryCache(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Get(ctx, listURL)
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, c.Set(ctx, listURL, []byte("x"), time.Hour), context.Canceled)
	})
}

// TestBadgerCache_Set tests setting values in cache
func TestBadgerCache_Set(t *testing.T) {
	t.Run("stores value without TTL", func(t *testing.T) {
		c := newMemoryCache(t)
		ctx := context.Background()

		require.NoError(t, c.Set(ctx, listURL, []byte("content"), 0))
		assert.True(t, c.Has(ctx, listURL))
	})

	t.Run("overwrites existing value", func(t *testing.T) {
		c := newMemoryCache(t)
		ctx := context.Background()

		require.NoError(t, c.Set(ctx, listURL, []byte("original"), time.Hour))
		require.NoError(t, c.Set(ctx, listURL, []byte("updated"), time.Hour))

		value, err := c.Get(ctx, listURL)
		require.NoError(t, err)
		assert.Equal(t, []byte("updated"), value)
	})
}

// TestBadgerCache_Delete tests deleting keys
func TestBadgerCache_Delete(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, listURL, []byte("content"), time.Hour))
	require.NoError(t, c.Delete(ctx, listURL))
	assert.False(t, c.Has(ctx, listURL))

	// deleting a missing key is not an error
	assert.NoError(t, c.Delete(ctx, "https://res.cloudinary.com/avjpl/image/list/s--x--/none.json"))
}

// TestBadgerCache_SizeAndClear tests counting and clearing entries
func TestBadgerCache_SizeAndClear(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), c.Size())

	for _, tag := range []string{"birds", "insects", "reptiles"} {
		require.NoError(t, c.Set(ctx, "https://res.cloudinary.com/avjpl/image/list/s--x--/"+tag+".json", []byte("{}"), time.Hour))
	}
	assert.Equal(t, int64(3), c.Size())

	stats := c.Stats()
	assert.Equal(t, int64(3), stats["entries"])
	assert.Contains(t, stats, "lsm_size")
	assert.Contains(t, stats, "vlog_size")

	require.NoError(t, c.Clear())
	assert.Equal(t, int64(0), c.Size())
}

// TestBadgerCache_ConcurrentAccess tests concurrent access safety
func TestBadgerCache_ConcurrentAccess(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		url := fmt.Sprintf("https://res.cloudinary.com/avjpl/image/list/s--x--/tag%d.json", i)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, url, []byte("content"), time.Hour)
		}()
		go func() {
			defer wg.Done()
			_, _ = c.Get(ctx, url)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Size())
}
