// Package testing provides a standardised test suite for implementations
// of the table.ITableProvider interface.
//
// The suite fills a users table with a small fixture and checks the observable
// behavior of every table operation against it: record round trips, the query
// operators and their complements, ordering, pagination, nested key paths and the
// error codes of invalid queries. It is run for the local connector on every engine
// and for the RPC client, so both must behave the same.
//
// Example usage:
//
//	tabletesting.RunTableTests(t, "Local(maple)", func(t testing.TB, layout table.Layout) table.ITableProvider {
//		conn := ltable.NewLocalConnector(func() (db.Engine, error) {
//			return maple.NewMapleDB(nil)
//		}, layout)
//		if err := conn.Open(nil); err != nil {
//			t.Fatalf("Open failed: %v", err)
//		}
//		t.Cleanup(func() { _ = conn.Close() })
//		return conn
//	})
package testing
