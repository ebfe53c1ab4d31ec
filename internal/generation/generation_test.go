package generation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken_Lifecycle(t *testing.T) {
	var src Source

	a := src.Next()
	assert.True(t, a.Valid())

	b := src.Next()
	assert.False(t, a.Valid(), "older token must go stale")
	assert.True(t, b.Valid())
	assert.Greater(t, b.ID(), a.ID())

	src.Invalidate()
	assert.False(t, b.Valid())
}

func TestToken_ZeroValue(t *testing.T) {
	var tok Token
	assert.False(t, tok.Valid())
}

func TestToken_SourcesAreIndependent(t *testing.T) {
	var chat, voice Source

	c := chat.Next()
	voice.Next()
	voice.Invalidate()

	assert.True(t, c.Valid())
}

func TestSource_ConcurrentNext(t *testing.T) {
	var src Source
	var wg sync.WaitGroup
	ids := make(chan uint64, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- src.Next().ID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}
