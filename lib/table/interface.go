package table

import (
	"errors"
	"fmt"
	"iter"

	"github.com/ValentinKolb/tKV/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// PrimaryKeyPath is the key path of every table, each record has a unique id
const PrimaryKeyPath = "id"

// MigrationFunc is called with a migration handle when the database is upgraded
// to a new layout version. Returning an error aborts the upgrade.
type MigrationFunc func(h IMigrationHandle) error

// ITableProvider gives access to the tables of a database.
type ITableProvider interface {
	// HasTable returns whether a table exists.
	HasTable(name string) (ok bool, err error)
	// CreateTable creates a new table with the primary key path "id".
	// It fails with ErrTableExists if the table already exists.
	CreateTable(name string) (err error)
	// GetTableConnector returns a connector for an existing table.
	// It fails with ErrTableNotFound if the table does not exist.
	GetTableConnector(name string) (tbl ITableConnector, err error)
}

// IConnector is a database connection. It must be opened before use,
// all other methods fail with ErrNotOpen before Open completes.
type IConnector interface {
	ITableProvider
	// Open opens the database. If the stored version is below the layout version,
	// migration is called inside the version upgrade (nil = DefaultMigration).
	// Opening a database whose stored version is higher than the layout version fails with ErrVersion.
	Open(migration MigrationFunc) (err error)
	// Close closes the database. Closing twice is a no-op.
	Close() (err error)
}

// ITableConnector is the generic interface for interacting with a single table.
// Each operation runs in its own transaction.
type ITableConnector interface {
	// Get returns the record stored under key. The boolean return value indicates whether a record was found.
	Get(key string) (rec db.Record, found bool, err error)
	// Set stores value under key (insert or replace) and returns the stored record (value with id = key).
	Set(key string, value db.Record) (rec db.Record, err error)
	// Add stores value under a newly generated id and returns the stored record.
	Add(value db.Record) (rec db.Record, err error)
	// Delete removes the record stored under key. Deleting a missing key is a no-op.
	Delete(key string) (err error)
	// Clear removes all records of the table.
	Clear() (err error)
	// List returns all records matching the query. Every failure is reported as ErrInvalidQuery.
	List(q Query) (recs []db.Record, err error)
	// Iterate returns the records matching the query as a lazy sequence with the semantics of List.
	// The sequence holds a read transaction until it is exhausted or the consumer stops.
	Iterate(q Query) iter.Seq2[db.Record, error]
	// Count returns the number of records matching the query filter (limit and offset are ignored).
	Count(q Query) (n int, err error)
	// CalculateSize returns the sum of the JSON encoded sizes of all records.
	CalculateSize() (size int, err error)
}

// IMigrationHandle is passed to a MigrationFunc and allows to change the table layout.
type IMigrationHandle interface {
	// OldVersion returns the version the database had before the upgrade.
	OldVersion() uint64
	// NewVersion returns the version the database is upgraded to.
	NewVersion() uint64
	// GetTables returns the names of all tables.
	GetTables() []string
	// HasTable returns whether a table exists.
	HasTable(name string) bool
	// CreateTable creates a new table with the primary key path "id".
	CreateTable(name string) error
	// DeleteTable deletes a table with all its records and indexes.
	DeleteTable(name string) error
	// GetIndexes returns the key paths of all indexes of a table.
	GetIndexes(table string) ([]string, error)
	// HasIndex returns whether a table has an index on keyPath.
	HasIndex(table, keyPath string) (bool, error)
	// CreateIndex creates an index on keyPath. The index is named after its key path.
	CreateIndex(table, keyPath string) error
	// DeleteIndex deletes the index on keyPath.
	DeleteIndex(table, keyPath string) error
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and an optional cause.
// Two errors match with errors.Is if their codes are equal.
type Error struct {
	Code  RetCode // The return code
	Msg   string  // The error message.
	Cause error   // The underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("TableError (code %s): %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("TableError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause of the error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error with the given code and message that wraps cause.
func WrapError(code RetCode, msg string, cause error) *Error {
	return &Error{
		Code:  code,
		Msg:   msg,
		Cause: cause,
	}
}

// CodeOf returns the return code of err (RetCSuccess for nil, RetCInternalError for foreign errors)
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// Sentinel errors for errors.Is
var (
	ErrInternal            = NewError(RetCInternalError, "internal error")
	ErrNotOpen             = NewError(RetCNotOpen, "database not open")
	ErrTableExists         = NewError(RetCTableExists, "table already exists")
	ErrTableNotFound       = NewError(RetCTableNotFound, "table does not exist")
	ErrIndexNotFound       = NewError(RetCIndexNotFound, "index not found")
	ErrInvalidQuery        = NewError(RetCInvalidQuery, "invalid query")
	ErrUnsupportedOperator = NewError(RetCUnsupportedOperator, "unsupported operator")
	ErrVersion             = NewError(RetCVersion, "stored version is newer than the layout version")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess             RetCode = iota // 0: Command executed successfully.
	RetCInternalError                      // 1: Command failed due to an internal error.
	RetCNotOpen                            // 2: The connector was used before Open completed.
	RetCTableExists                        // 3: A table was created that already exists.
	RetCTableNotFound                      // 4: A table was accessed that does not exist.
	RetCIndexNotFound                      // 5: A query references an undeclared index.
	RetCInvalidQuery                       // 6: The query is malformed or could not be executed.
	RetCUnsupportedOperator                // 7: The query uses an unknown operator.
	RetCVersion                            // 8: The stored version is newer than the layout.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCNotOpen:
		return "NotOpen"
	case RetCTableExists:
		return "TableExists"
	case RetCTableNotFound:
		return "TableNotFound"
	case RetCIndexNotFound:
		return "IndexNotFound"
	case RetCInvalidQuery:
		return "InvalidQuery"
	case RetCUnsupportedOperator:
		return "UnsupportedOperator"
	case RetCVersion:
		return "Version"
	default:
		return "Unknown"
	}
}
