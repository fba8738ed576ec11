package worker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenCache(t *testing.T) {
	c := NewSeenCache()

	assert.False(t, c.Seen("downloads/aaaa"))
	c.MarkSeen("downloads/aaaa")
	assert.True(t, c.Seen("downloads/aaaa"))
	assert.False(t, c.Seen("downloads/bbbb"))

	// Marking twice is a no-op.
	c.MarkSeen("downloads/aaaa")
	assert.Equal(t, 1, c.Len())
}

func TestSeenCacheConcurrentAccess(t *testing.T) {
	c := NewSeenCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("events/s%d-%d", n, j)
				c.MarkSeen(key)
				_ = c.Seen(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1600, c.Len())
}
