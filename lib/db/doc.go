// Package db provides a standardized interface for ordered object-store engines.
// It models a small, embeddable database that organizes records in object stores
// with secondary indexes and exposes them through transactions, key ranges and
// cursors, while abstracting the underlying storage.
//
// The package focuses on:
//   - A unified interface for object stores, indexes and cursors
//   - Key ranges over an order-preserving key encoding
//   - Versioned schema changes
//   - Feature discovery through capability flags
//
// Key Components:
//
//   - Engine Interface: The core interface that all engine implementations must satisfy.
//     It provides schema versioning (Version, Upgrade, Migrate), read and write
//     transactions (View, Update), snapshots (Save, Load) and metadata (GetInfo).
//
//   - Tx / UpgradeTx: Transaction scopes. Only a version change transaction
//     (UpgradeTx) can create or delete object stores and indexes.
//
//   - ObjectStore / Index / Source: An object store keeps records ordered by their
//     primary key (read from the store key path). An index keeps the same records
//     ordered by another key path. Both can be counted and scanned via the Source
//     interface.
//
//   - KeyRange: A continuous interval over keys (Only, LowerBound, UpperBound, Bound)
//     used to bound counts and scans.
//
//   - Cursor: A stateful, advance-by-request iterator over a Source in ascending
//     (DirectionNext) or descending (DirectionPrev) order.
//
// Keys:
//
// Valid keys are numbers, dates, strings, binaries and arrays of valid keys. Keys of
// different kinds order as number < date < string < binary < array. See the keys
// package for the encoding. A record is only part of an index if the value at the
// index key path is a valid key.
//
// Related Packages:
//
// The engines/base package provides the object-store logic on top of any ordered
// bucket backend. The engines/bolt (persistent, bbolt) and engines/maple (in-memory,
// B-tree) packages provide such backends.
//
// The testing package provides a standardized test suite (RunEngineTests) and
// benchmarks (RunEngineBenchmarks) for Engine implementations.
package db
