package testing

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(newMock()))
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory(newMock()))
		})

		b.Run("SetWithExpiry", func(b *testing.B) {
			benchmarkSetWithExpiry(b, factory(newMock()))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(newMock()))
		})

		b.Run("Exists(not)", func(b *testing.B) {
			benchmarkExistsNot(b, factory(newMock()))
		})

		b.Run("Keys", func(b *testing.B) {
			benchmarkKeys(b, factory(newMock()))
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory(newMock()))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	var counter int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := atomic.AddInt64(&counter, 1)
			database.Set(fmt.Sprintf("test-key-%d", i), "test-value", nil)
		}
	})
}

// Benchmark for Set with a 1 MB value
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	value := strings.Repeat("x", 1<<20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Set(fmt.Sprintf("large-key-%d", i%100), value, nil)
	}
}

// Benchmark for Set with a ttl
func benchmarkSetWithExpiry(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	var counter int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := atomic.AddInt64(&counter, 1)
			ttl := i%100 + 1
			database.Set(fmt.Sprintf("test-expiry-key-%d", i), "test-expiry-value", &ttl)
		}
	})
}

// Benchmark for Get on existing keys
func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 10_000
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("test-key-%d", i), "test-value", nil)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			database.Get(fmt.Sprintf("test-key-%d", i%numKeys))
			i++
		}
	})
}

// Benchmark for Exists on missing keys
func benchmarkExistsNot(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			database.Exists(fmt.Sprintf("missing-key-%d", i))
			i++
		}
	})
}

// Benchmark for a prefix scan over 10k keys
func benchmarkKeys(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	for i := 0; i < 10_000; i++ {
		database.Set(fmt.Sprintf("user:%d", i), "v", nil)
		database.Set(fmt.Sprintf("session:%d", i), "v", nil)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		database.Keys("user:1*")
	}
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	numKeys := 50_000
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("test-mixed-key-%d", i), "v", nil)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			key := fmt.Sprintf("test-mixed-key-%d", counter%numKeys)
			switch r := rnd.Float32(); {
			case r < .6:
				database.Get(key)
			case r < .9:
				ttl := int64(rnd.Intn(1000) + 1)
				database.Set(key, "updated", &ttl)
			default:
				database.Delete(key)
			}
			counter++
		}
	})
}
