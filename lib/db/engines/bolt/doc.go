// Package bolt implements a persistent object-store engine on top of bbolt
// (go.etcd.io/bbolt). It provides a backend for the engines/base package.
//
// Every bucket of the engine layout maps to a (nested) bbolt bucket, so stores,
// indexes and the schema version are persisted in a single file and survive a
// restart. bbolt allows one writer and many concurrent readers (MVCC), which
// matches the transaction model of db.Engine directly.
//
// Usage:
//
//	engine, err := bolt.NewBoltDB("data/users.db", nil)
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
package bolt
