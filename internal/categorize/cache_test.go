package categorize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLabelCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := newLabelCache(5*time.Minute, nil)
		defer cache.close()

		_, found := cache.get("non-existent")
		assert.False(t, found)

		cache.set("Milk 1L", "Groceries")

		got, found := cache.get("  milk 1l ")
		assert.True(t, found)
		assert.Equal(t, "Groceries", got)
		assert.Equal(t, 1, cache.size())
	})

	t.Run("expiration", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		cache := newLabelCache(time.Minute, func() time.Time { return now })
		defer cache.close()

		cache.set("bread", "Groceries")
		_, found := cache.get("bread")
		assert.True(t, found)

		now = now.Add(2 * time.Minute)
		_, found = cache.get("bread")
		assert.False(t, found)

		assert.Equal(t, 1, cache.purge())
		assert.Equal(t, 0, cache.size())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		cache := newLabelCache(0, nil)
		cache.close()
		cache.close()
	})
}
