package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialRunIDs(t *testing.T) {
	gen := NewSequentialRunIDs("demo")

	assert.Equal(t, "demo-001", gen.Generate())
	assert.Equal(t, "demo-002", gen.Generate())
	assert.Equal(t, 2, gen.Issued())

	gen.Reset()
	assert.Equal(t, "demo-001", gen.Generate())
}

func TestSequentialRunIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialRunIDs("p")

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every ID is unique")
	assert.Equal(t, 1000, gen.Issued())
}
