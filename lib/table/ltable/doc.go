// Package ltable implements a local table connector based on the table.IConnector
// interface. It translates table operations and queries into transactions on a
// db.Engine (e.g. the in-memory maple engine or the persistent bolt engine).
//
// Query Translation:
//
//   - Source: A query with a filter scans the store if the filter key is the primary
//     key path ("id"), otherwise the index named after the filter key. Without a
//     filter, the order key selects the source. An undeclared index fails with
//     table.ErrIndexNotFound.
//
//   - Key Range: Operators that select a contiguous range (==, >, >=, <, <=, between)
//     are translated into a key range, so only matching records are visited.
//     The operators !=, in and not-in can not be expressed as a single range. They scan
//     the whole source and drop non-matching records with a post-filter.
//
//   - Count: Range operators count the key range directly. in is counted as the sum of
//     the equality counts of its distinct values, != and not-in as the total of the
//     source minus that sum.
//
//   - Pagination: The iterator drives the engine cursor inside one read transaction.
//     It advances past offset records of the cursor, applies the post-filter and stops
//     after limit matches. Ordering by a key other than the filter key buffers and
//     sorts the matches, offset and limit then slice the sorted result.
//
// Error Handling:
//
//	List and Iterate report every failure as table.ErrInvalidQuery. The cause is kept
//	and can be inspected with errors.Is / errors.Unwrap. All other operations return
//	the specific table error (ErrNotOpen, ErrTableNotFound, ErrIndexNotFound, ...).
//
// Thread Safety:
//
//	All operations are thread-safe. Each operation runs in its own engine transaction,
//	so two operations on the same table are not atomic relative to each other.
//	Consumers of Iterate must not write to the same database while iterating.
//
// Usage Example:
//
//	layout := table.Layout{Version: 1, Tables: map[string]table.TableLayout{
//		"users": {Indexes: []table.IndexLayout{{KeyPath: "age"}}},
//	}}
//	conn := ltable.NewLocalConnector(func() (db.Engine, error) {
//		return maple.NewMapleDB(nil)
//	}, layout)
//	if err := conn.Open(nil); err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	users, _ := conn.GetTableConnector("users")
//	adults, err := users.List(table.Query{
//		Where: &table.Where{Key: "age", Operator: table.OpGreaterOrEqual, Value: 18},
//		Limit: 10,
//	})
package ltable
