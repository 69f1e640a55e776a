// Package maple implements the in-memory, TTL aware key-value store used by
// the command engine. It provides the db.KVDB interface on top of a single
// map guarded by a FIFO lock.
//
// Key Components:
//
//   - mapleImpl: The database structure implementing db.KVDB. Every operation
//     acquires the FIFO lock for its whole critical section, so mutations are
//     mutually exclusive and waiters are served strictly in arrival order.
//
//   - Table (internal): The entries together with an expiry index (a MapHeap
//     ordered by expiry timestamp). Put and Remove keep both in sync.
//
// Expiration:
//
//   - Lazy: Get, Exists, TTL, Expire and Keys remove an expired entry as soon
//     as they observe it. There is no background goroutine.
//   - Eager: CleanupExpired pops every due entry from the expiry index. The
//     caller decides when to run it.
//
// Time is read from a clock.Clock (github.com/benbjohnson/clock), which lets
// tests advance time deterministically with clock.NewMock().
//
// Thread-safety: all methods of the database are safe for concurrent use.
package maple
