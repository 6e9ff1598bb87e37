package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryEnterExcludesConcurrentStage(t *testing.T) {
	l := New()
	assert.True(t, l.TryEnter(1))
	assert.False(t, l.TryEnter(1))
	l.Leave(1)
	assert.True(t, l.TryEnter(1))
}

func TestMarkAcceptedPreservesDelivered(t *testing.T) {
	l := New()
	l.MarkDelivered(5)
	l.MarkAccepted(5)
	s := l.Stage(5)
	assert.True(t, s.Accepted)
	assert.True(t, s.Delivered)
}

func TestConcurrentTryEnterIsExclusive(t *testing.T) {
	l := New()
	const n = 50
	var wg sync.WaitGroup
	var successes int32
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryEnter(42) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, successes)
}
