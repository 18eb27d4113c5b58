// Package table provides a high-level interface for table based record storage
// with filtering, ordering, pagination and layout migrations.
// It serves as an abstraction layer over the lower-level db.Engine implementations and
// translates an abstract table/query model into stores, indexes, key ranges and cursors.
//
// The package focuses on:
//   - A unified interface (IConnector, ITableConnector) for table operations across
//     local and remote implementations
//   - Declarative table layouts with versioned migrations
//   - A structured error system with return codes that survives the RPC boundary
//
// Key Components:
//
//   - IConnector / ITableProvider: The database connection. It is opened with an
//     optional migration that runs when the layout version is higher than the stored
//     version, and gives access to the tables of the database.
//
//   - ITableConnector: The operations on a single table: Get, Set, Add, Delete, Clear,
//     List, Iterate, Count and CalculateSize. Every record has a unique "id" field which
//     is its primary key.
//
//   - Query: An optional filter (Where{Key, Operator, Value}), an optional order
//     (OrderBy{Key, Direction}) and pagination (Limit, Offset). Supported operators are
//     ==, !=, >, >=, <, <=, between, in and not-in. A filter or order on a key other
//     than "id" requires an index on that key.
//
//   - Layout / IMigrationHandle: The declared tables and indexes of a database and
//     the handle that allows a migration to create and delete them. DefaultMigration
//     brings the database in line with the layout.
//
//   - Error System: A structured error type with return codes (RetCode). Errors
//     match with errors.Is by code, so callers can check for e.g. ErrTableNotFound
//     or ErrInvalidQuery regardless of the message.
//
// Implementations:
//
//	- Local Connector (ltable): Works directly on a db.Engine (maple or bolt).
//	  Available in the "github.com/ValentinKolb/tKV/lib/table/ltable" package.
//
//	- RPC Connector: Talks to a tKV server.
//	  Available in the "github.com/ValentinKolb/tKV/rpc/client" package.
package table
