package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRounds_AdvanceAndSet(t *testing.T) {
	r := NewRounds(10)
	assert.Equal(t, uint64(10), r.Round())

	assert.Equal(t, uint64(15), r.Advance(5))
	r.Set(100)
	assert.Equal(t, uint64(100), r.Round())

	r.Set(50)
	assert.Equal(t, uint64(100), r.Round(), "rounds never move backwards")
}

func TestRounds_ThreadSafe(t *testing.T) {
	r := NewRounds(0)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Advance(2)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(2*goroutines), r.Round())
}
