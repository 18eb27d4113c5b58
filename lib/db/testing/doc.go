// Package testing provides standardised tests and benchmarks for
// engine implementations that satisfy the db.Engine interface.
//
// The package contains:
//   - testing: A test suite for validating conformance to the Engine interface contract
//     (schema upgrades, key ranges, cursors, index maintenance, rollbacks, snapshots)
//   - benchmark: Performance tests for measuring throughput of common engine operations
//
// This package is particularly useful for:
//   - Applications that need to select the most appropriate engine implementation
//     based on performance characteristics
//   - Backend developers implementing the base.IBackend interface
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() (db.Engine, error) {
//		return NewMyEngine()
//	}
//
//	// Running the standard test suite
//	dbtesting.RunEngineTests(t, "MyEngine", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunEngineBenchmarks(b, "MyEngine", factory)
package testing
