// Package db defines the key-value store used by the cKV command engine.
//
// The package focuses on:
//   - A single KVDB interface covering the store operations (Set, Get, Delete,
//     Exists, Keys, Clear, Expire, TTL, CleanupExpired) plus an atomic
//     read-modify-write primitive (Compute)
//   - The Entry data model with millisecond timestamps
//   - The TTL sentinel convention (TTLAbsent = -2, TTLNoExpiry = -1)
//
// Note on Expiration:
//   - Expiration is lazy. An entry whose expiry has passed is logically dead but
//     stays in memory until it is observed by Get, Exists, Keys, TTL or swept by
//     CleanupExpired. There is no background eviction goroutine.
//   - Delete removes an entry regardless of its expiry, Expire only affects live
//     entries and never creates one.
//
// Note on Concurrency:
//   - Implementations must make every operation atomic. Mutations are mutually
//     exclusive and waiters should be served in arrival order.
//
// Related Packages:
//
// The engines/maple package (github.com/ValentinKolb/cKV/lib/db/engines/maple)
// implements KVDB with a FIFO lock around a plain map and a heap based expiry
// index.
//
// The util package (github.com/ValentinKolb/cKV/lib/db/util) provides the FIFO
// mutex, the expiry heap, glob matching and size statistics.
//
// The testing package (github.com/ValentinKolb/cKV/lib/db/testing) provides a
// conformance suite for KVDB implementations:
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
package db
