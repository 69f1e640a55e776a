// Package util provides the building blocks of the maple store engine
// (github.com/ValentinKolb/cKV/lib/db/engines/maple).
//
// The package contains:
//   - fifomutex: FIFOMutex, an exclusive lock that serves waiters strictly in arrival order
//   - mapheap: MapHeap, a min-heap with key based access used as expiry index
//   - functions: key pattern matching ('*' and '?' wildcards)
//   - statistics: SizeHistogram for cheap size estimations
//
// None of the components depend on the store, they can be used on their own.
package util
