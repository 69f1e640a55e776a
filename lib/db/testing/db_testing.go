package testing

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/lib/db"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DBFactory creates a new instance of a KVDB implementation that reads the
// time from the given mock clock
type DBFactory func(c *clock.Mock) db.KVDB

// epoch is the start time of every mock clock handed to a factory
var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// newMock returns a mock clock set to epoch
func newMock() *clock.Mock {
	c := clock.NewMock()
	c.Set(epoch)
	return c
}

func ptr(v int64) *int64 { return &v }

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			c := newMock()
			testSetGet(t, factory(c))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			c := newMock()
			testKeyExpiry(t, factory(c), c)
		})

		t.Run("Expire", func(t *testing.T) {
			c := newMock()
			testExpire(t, factory(c), c)
		})

		t.Run("TTL", func(t *testing.T) {
			c := newMock()
			testTTL(t, factory(c), c)
		})

		t.Run("Delete", func(t *testing.T) {
			c := newMock()
			testDelete(t, factory(c), c)
		})

		t.Run("Exists", func(t *testing.T) {
			c := newMock()
			testExists(t, factory(c), c)
		})

		t.Run("Keys", func(t *testing.T) {
			c := newMock()
			testKeys(t, factory(c), c)
		})

		t.Run("Clear", func(t *testing.T) {
			c := newMock()
			testClear(t, factory(c))
		})

		t.Run("CleanupExpired", func(t *testing.T) {
			c := newMock()
			testCleanupExpired(t, factory(c), c)
		})

		t.Run("Compute", func(t *testing.T) {
			c := newMock()
			testCompute(t, factory(c))
		})

		t.Run("ConcurrentCompute", func(t *testing.T) {
			c := newMock()
			testConcurrentCompute(t, factory(c))
		})

		t.Run("Info", func(t *testing.T) {
			c := newMock()
			testInfo(t, factory(c), c)
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			c := newMock()
			testRealisticUsage(t, factory(c))
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	database.Set("test-key", "test-value1", nil)
	value, ok := database.Get("test-key")
	require.True(t, ok)
	assert.Equal(t, "test-value1", value)

	database.Set("test-key", "test-value2", nil)
	value, ok = database.Get("test-key")
	require.True(t, ok)
	assert.Equal(t, "test-value2", value)

	_, ok = database.Get("nonexistent-key")
	assert.False(t, ok)

	// empty keys and values are regular entries
	database.Set("", "", nil)
	value, ok = database.Get("")
	assert.True(t, ok)
	assert.Equal(t, "", value)
}

func testKeyExpiry(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	database.Set("k", "v", ptr(1))
	value, ok := database.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", value)

	c.Add(999 * time.Millisecond)
	_, ok = database.Get("k")
	assert.True(t, ok, "entry must be live before its expiry")

	c.Add(time.Millisecond)
	_, ok = database.Get("k")
	assert.False(t, ok, "entry must be dead at its expiry")
	assert.Equal(t, 0, database.Len(), "expired entry must be removed on observation")

	// a set without ttl replaces an expiring entry wholesale
	database.Set("k", "v", ptr(1))
	database.Set("k", "w", nil)
	c.Add(5 * time.Second)
	value, ok = database.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "w", value)

	// non positive ttls are due immediately
	database.Set("zero", "v", ptr(0))
	database.Set("negative", "v", ptr(-10))
	assert.False(t, database.Exists("zero"))
	assert.False(t, database.Exists("negative"))
}

func testExpire(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	assert.False(t, database.Expire("missing", 10))
	assert.False(t, database.Exists("missing"), "expire must not create an entry")

	database.Set("k", "v", nil)
	assert.True(t, database.Expire("k", 2))
	c.Add(1500 * time.Millisecond)
	assert.True(t, database.Exists("k"))
	c.Add(500 * time.Millisecond)
	assert.False(t, database.Exists("k"))

	// expire on an expired key fails
	database.Set("e", "v", ptr(1))
	c.Add(2 * time.Second)
	assert.False(t, database.Expire("e", 10))
	assert.False(t, database.Exists("e"))

	// expire keeps the value
	database.Set("keep", "value", nil)
	require.True(t, database.Expire("keep", 100))
	value, ok := database.Get("keep")
	require.True(t, ok)
	assert.Equal(t, "value", value)
}

func testTTL(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	assert.Equal(t, db.TTLAbsent, database.TTL("missing"))

	database.Set("plain", "v", nil)
	assert.Equal(t, db.TTLNoExpiry, database.TTL("plain"))
	assert.NotEqual(t, db.TTLAbsent, db.TTLNoExpiry)

	database.Set("k", "v", ptr(10))
	assert.Equal(t, int64(10), database.TTL("k"))

	// remaining time is rounded up
	c.Add(100 * time.Millisecond)
	assert.Equal(t, int64(10), database.TTL("k"))
	c.Add(8900 * time.Millisecond)
	assert.Equal(t, int64(1), database.TTL("k"))
	c.Add(999 * time.Millisecond)
	assert.Equal(t, int64(1), database.TTL("k"))
	c.Add(time.Millisecond)
	assert.Equal(t, db.TTLAbsent, database.TTL("k"))

	// ttls beyond the timestamp range never wrap into the past
	for _, seconds := range []int64{9223372036854775, math.MaxInt64 / 2, math.MaxInt64} {
		database.Set("far", "v", ptr(seconds))
		value, ok := database.Get("far")
		require.True(t, ok, "ttl %d", seconds)
		assert.Equal(t, "v", value)
		ttl := database.TTL("far")
		assert.Greater(t, ttl, int64(0), "ttl %d", seconds)
		assert.LessOrEqual(t, ttl, seconds)

		require.True(t, database.Expire("far", seconds))
		assert.True(t, database.Exists("far"))
	}
}

func testDelete(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	assert.False(t, database.Delete("missing"))

	database.Set("k", "v", nil)
	assert.True(t, database.Delete("k"))
	assert.False(t, database.Exists("k"))
	assert.False(t, database.Delete("k"))

	// delete removes an entry regardless of its expiry
	database.Set("e", "v", ptr(1))
	c.Add(2 * time.Second)
	assert.True(t, database.Delete("e"))
	assert.Equal(t, 0, database.Len())
}

func testExists(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	assert.False(t, database.Exists("k"))
	database.Set("k", "v", ptr(1))
	assert.True(t, database.Exists("k"))
	c.Add(time.Second)
	assert.False(t, database.Exists("k"))
	assert.Equal(t, 0, database.Len())
}

func testKeys(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	assert.Empty(t, database.Keys("*"))

	database.Set("user:1", "a", nil)
	database.Set("user:2", "b", nil)
	database.Set("user:10", "c", nil)
	database.Set("session:1", "d", nil)
	database.Set("user:gone", "e", ptr(1))
	c.Add(time.Second)

	assert.Equal(t, []string{"session:1", "user:1", "user:10", "user:2"}, database.Keys("*"))
	assert.Equal(t, 4, database.Len(), "keys must remove expired entries")

	assert.Equal(t, []string{"user:1", "user:10", "user:2"}, database.Keys("user:*"))
	assert.Equal(t, []string{"user:1", "user:2"}, database.Keys("user:?"))
	assert.Equal(t, []string{"session:1"}, database.Keys("session:1"))
	assert.Empty(t, database.Keys("nothing*"))

	// the pattern is anchored on both ends
	assert.Empty(t, database.Keys("user"))
	assert.Empty(t, database.Keys("ser:*"))

	// glob meta characters other than * and ? are literal
	database.Set("a[1]", "x", nil)
	database.Set("{b}", "y", nil)
	assert.Equal(t, []string{"a[1]"}, database.Keys("a[1]"))
	assert.Equal(t, []string{"{b}"}, database.Keys("{b}"))
}

func testClear(t *testing.T, database db.KVDB) {
	defer database.Close()

	for i := 0; i < 100; i++ {
		var ttl *int64
		if i%2 == 0 {
			ttl = ptr(100)
		}
		database.Set(fmt.Sprintf("key-%d", i), "v", ttl)
	}
	require.Equal(t, 100, database.Len())

	database.Clear()
	assert.Equal(t, 0, database.Len())
	assert.Empty(t, database.Keys("*"))
	assert.Equal(t, 0, database.GetInfo().ExpiringKeys)

	database.Clear()
	assert.Equal(t, 0, database.Len())
}

func testCleanupExpired(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	assert.Equal(t, 0, database.CleanupExpired())

	for i := 0; i < 50; i++ {
		database.Set(fmt.Sprintf("short-%d", i), "v", ptr(1))
		database.Set(fmt.Sprintf("long-%d", i), "v", ptr(100))
		database.Set(fmt.Sprintf("plain-%d", i), "v", nil)
	}
	require.Equal(t, 150, database.Len())

	c.Add(time.Second)
	assert.Equal(t, 50, database.CleanupExpired())
	assert.Equal(t, 100, database.Len())
	assert.Equal(t, 0, database.CleanupExpired())

	// an expiry that was pushed back is not cleaned up early
	database.Set("moved", "v", ptr(1))
	require.True(t, database.Expire("moved", 50))
	c.Add(2 * time.Second)
	assert.Equal(t, 0, database.CleanupExpired())
	assert.True(t, database.Exists("moved"))

	c.Add(100 * time.Second)
	assert.Equal(t, 51, database.CleanupExpired())
	assert.Equal(t, 50, database.Len())
}

func testCompute(t *testing.T, database db.KVDB) {
	defer database.Close()

	value, ok := database.Compute("counter", func(v string, loaded bool) (string, bool) {
		assert.False(t, loaded)
		return "1", false
	})
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	value, ok = database.Compute("counter", func(v string, loaded bool) (string, bool) {
		assert.True(t, loaded)
		assert.Equal(t, "1", v)
		return "2", false
	})
	assert.True(t, ok)
	assert.Equal(t, "2", value)

	_, ok = database.Compute("counter", func(string, bool) (string, bool) { return "", true })
	assert.False(t, ok)
	assert.False(t, database.Exists("counter"))

	// compute keeps the expiry of the entry
	database.Set("expiring", "a", ptr(10))
	database.Compute("expiring", func(v string, _ bool) (string, bool) { return v + "b", false })
	assert.Equal(t, int64(10), database.TTL("expiring"))
}

func testConcurrentCompute(t *testing.T, database db.KVDB) {
	defer database.Close()

	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				database.Compute("counter", func(v string, loaded bool) (string, bool) {
					n := 0
					if loaded {
						n, _ = strconv.Atoi(v)
					}
					return strconv.Itoa(n + 1), false
				})
			}
		}()
	}
	wg.Wait()

	value, ok := database.Get("counter")
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(workers*perWorker), value, "no update may be lost")
}

func testInfo(t *testing.T, database db.KVDB, c *clock.Mock) {
	defer database.Close()

	info := database.GetInfo()
	assert.Equal(t, 0, info.Keys)
	assert.Equal(t, 0, info.SizeBytes)

	database.Set("a", "value", nil)
	database.Set("b", "value", ptr(1))
	database.Set("c", "value", ptr(100))

	info = database.GetInfo()
	assert.Equal(t, 3, info.Keys)
	assert.Equal(t, 2, info.ExpiringKeys)
	assert.Greater(t, info.SizeBytes, 0)
	assert.Equal(t, 0, info.ExpiredBacklog)

	c.Add(time.Second)
	info = database.GetInfo()
	assert.Equal(t, 1, info.ExpiredBacklog)

	database.Clear()
	assert.Equal(t, 0, database.GetInfo().SizeBytes)
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	numWorkers := 8
	opsPerWorker := 2_000

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("w%d-key-%d", workerId, i%100)
				hot := fmt.Sprintf("hot-key-%d", i%10)
				switch i % 10 {
				case 0, 1, 2, 3, 4:
					database.Set(key, strconv.Itoa(i), nil)
				case 5, 6:
					database.Get(key)
					database.Get(hot)
				case 7:
					database.Set(hot, "hot", ptr(60))
				case 8:
					database.Keys(fmt.Sprintf("w%d-*", workerId))
				case 9:
					database.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	// each worker owns its keys, the final value of a live key is deterministic
	for w := 0; w < numWorkers; w++ {
		keys := database.Keys(fmt.Sprintf("w%d-*", w))
		for _, key := range keys {
			_, ok := database.Get(key)
			assert.True(t, ok, "key %s listed but missing", key)
		}
	}
}
