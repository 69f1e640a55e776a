// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - testing: A comprehensive test suite for validating conformance to the KVDB interface contract
//   - benchmark: Performance tests for measuring throughput of common database operations
//
// Every factory call receives a fresh clock.Mock set to a fixed point in time,
// the suite advances it to drive expiry deterministically.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(c *clock.Mock) db.KVDB {
//		return NewMyDatabase(c)
//	}
//
//	// Running the standard test suite
//	dbtesting.RunKVDBTests(t, "MyDatabase", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunKVDBBenchmarks(b, "MyDatabase", factory)
package testing
