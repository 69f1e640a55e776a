package util

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern(t *testing.T) {
	testCases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"user:*", "user:1", true},
		{"user:*", "user:", true},
		{"user:*", "admin:1", false},
		{"user:*", "xuser:1", false},
		{"user:?", "user:1", true},
		{"user:?", "user:12", false},
		{"*:1", "admin:1", true},
		{"a*b*c", "a-xx-b-yy-c", true},
		{"a*b*c", "a-xx-c", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"path/*", "path/to/key", true},
		{"[abc]", "[abc]", true},
		{"[abc]", "a", false},
		{"{a,b}", "{a,b}", true},
		{"{a,b}", "a", false},
		{`back\slash`, `back\slash`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern+"/"+tc.key, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchPattern(tc.pattern, tc.key))
		})
	}
}

func TestFIFOMutexMutualExclusion(t *testing.T) {
	var (
		m       FIFOMutex
		counter int
		wg      sync.WaitGroup
	)
	const workers, rounds = 50, 200

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*rounds, counter)
}

func TestFIFOMutexOrder(t *testing.T) {
	var m FIFOMutex
	m.Lock()

	const waiters = 10
	order := make(chan int, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)

	for i := 0; i < waiters; i++ {
		go func(id int) {
			defer wg.Done()
			m.Lock()
			order <- id
			m.Unlock()
		}(i)
		// wait until goroutine i is queued before starting the next one
		require.Eventually(t, func() bool { return m.Waiting() == i+1 }, time.Second, time.Millisecond)
	}

	m.Unlock()
	wg.Wait()
	close(order)

	expected := 0
	for id := range order {
		assert.Equal(t, expected, id)
		expected++
	}
}

func TestFIFOMutexTryLock(t *testing.T) {
	var m FIFOMutex
	require.True(t, m.TryLock())
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.True(t, m.TryLock())
	m.Unlock()
}

func TestFIFOMutexUnlockUnlockedPanics(t *testing.T) {
	var m FIFOMutex
	assert.Panics(t, func() { m.Unlock() })
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	assert.Equal(t, 0, h.MedianEstimate())
	assert.Equal(t, 0, h.AverageSize())

	for i := 0; i < 10; i++ {
		h.AddSample(10)
	}
	h.AddSample(1000)

	assert.Equal(t, int64(11), h.Count())
	assert.Equal(t, (10*10+1000)/11, h.AverageSize())
	assert.Equal(t, 8, h.MedianEstimate())
	assert.Equal(t, (256+1024)/2, h.PercentileEstimate(100))

	h.Reset()
	assert.Equal(t, int64(0), h.Count())
}
