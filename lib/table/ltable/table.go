package ltable

import (
	"iter"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// tableImpl implements table.ITableConnector for a single object store
type tableImpl struct {
	conn *connectorImpl
	name string
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table/interface.go)
// --------------------------------------------------------------------------

func (t *tableImpl) Get(key string) (db.Record, bool, error) {
	var (
		rec   db.Record
		found bool
	)
	err := t.view(func(store db.ObjectStore) (err error) {
		rec, found, err = store.Get(key)
		return err
	})
	return rec, found, err
}

func (t *tableImpl) Set(key string, value db.Record) (db.Record, error) {
	rec := value.Clone()
	if rec == nil {
		rec = db.Record{}
	}
	rec[table.PrimaryKeyPath] = key

	err := t.update(func(store db.ObjectStore) error {
		return store.Put(rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *tableImpl) Add(value db.Record) (db.Record, error) {
	rec := value.Clone()
	if rec == nil {
		rec = db.Record{}
	}
	rec[table.PrimaryKeyPath] = uuid.NewString()

	err := t.update(func(store db.ObjectStore) error {
		return store.Add(rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *tableImpl) Delete(key string) error {
	return t.update(func(store db.ObjectStore) error {
		return store.Delete(key)
	})
}

func (t *tableImpl) Clear() error {
	return t.update(func(store db.ObjectStore) error {
		return store.Clear()
	})
}

func (t *tableImpl) List(q table.Query) ([]db.Record, error) {
	recs := make([]db.Record, 0)
	for rec, err := range t.Iterate(q) {
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (t *tableImpl) Iterate(q table.Query) iter.Seq2[db.Record, error] {
	return func(yield func(db.Record, error) bool) {
		p, err := compile(q)
		if err != nil {
			yield(nil, invalidQuery(err))
			return
		}
		engine, err := t.conn.getEngine()
		if err != nil {
			yield(nil, invalidQuery(err))
			return
		}
		for rec, err := range scan(engine, t.name, p) {
			if err != nil {
				yield(nil, invalidQuery(mapError(err)))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (t *tableImpl) Count(q table.Query) (int, error) {
	p, err := compile(q)
	if err != nil {
		return 0, err
	}
	var n int
	err = t.view(func(store db.ObjectStore) (err error) {
		n, err = p.count(store)
		return err
	})
	return n, err
}

func (t *tableImpl) CalculateSize() (int, error) {
	size := 0
	err := t.view(func(store db.ObjectStore) error {
		cursor, err := store.OpenCursor(nil, db.DirectionNext)
		if err != nil {
			return err
		}
		defer cursor.Close()
		for cursor.Next() {
			raw, err := json.Marshal(cursor.Value())
			if err != nil {
				return err
			}
			size += len(raw)
		}
		return cursor.Err()
	})
	return size, err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// view runs fn with the table store in a read transaction
func (t *tableImpl) view(fn func(store db.ObjectStore) error) error {
	engine, err := t.conn.getEngine()
	if err != nil {
		return err
	}
	return mapError(engine.View(func(tx db.Tx) error {
		store, err := tx.Store(t.name)
		if err != nil {
			return err
		}
		return fn(store)
	}))
}

// update runs fn with the table store in a write transaction
func (t *tableImpl) update(fn func(store db.ObjectStore) error) error {
	engine, err := t.conn.getEngine()
	if err != nil {
		return err
	}
	return mapError(engine.Update(func(tx db.Tx) error {
		store, err := tx.Store(t.name)
		if err != nil {
			return err
		}
		return fn(store)
	}))
}

// invalidQuery wraps every failure of a listing into the generic invalid query error
func invalidQuery(err error) error {
	if table.CodeOf(err) == table.RetCInvalidQuery {
		return err
	}
	return table.WrapError(table.RetCInvalidQuery, "invalid query", err)
}
