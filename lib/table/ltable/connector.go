package ltable

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("table")

type connectorImpl struct {
	factory db.EngineFactory
	layout  table.Layout

	mu     sync.RWMutex
	engine db.Engine // nil = not open
}

// NewLocalConnector creates a new connector for the database created by factory.
// The engine is opened on Open. The layout declares the tables and indexes of the
// database and is applied by the migration when its version is higher than the stored one.
func NewLocalConnector(factory db.EngineFactory, layout table.Layout) table.IConnector {
	return &connectorImpl{
		factory: factory,
		layout:  layout,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table/interface.go)
// --------------------------------------------------------------------------

func (c *connectorImpl) Open(migration table.MigrationFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		return nil
	}
	if err := c.layout.Validate(); err != nil {
		return table.WrapError(table.RetCInternalError, "invalid layout", err)
	}

	engine, err := c.factory()
	if err != nil {
		return table.WrapError(table.RetCInternalError, "failed to open database", err)
	}

	if err := c.upgrade(engine, migration); err != nil {
		_ = engine.Close()
		return err
	}

	c.engine = engine
	return nil
}

func (c *connectorImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine = nil
	if err != nil {
		return table.WrapError(table.RetCInternalError, "failed to close database", err)
	}
	return nil
}

func (c *connectorImpl) HasTable(name string) (bool, error) {
	engine, err := c.getEngine()
	if err != nil {
		return false, err
	}
	var ok bool
	err = engine.View(func(tx db.Tx) error {
		ok = tx.HasStore(name)
		return nil
	})
	return ok, mapError(err)
}

func (c *connectorImpl) CreateTable(name string) error {
	engine, err := c.getEngine()
	if err != nil {
		return err
	}
	err = engine.Migrate(func(tx db.UpgradeTx) error {
		return createTable(tx, name)
	})
	return mapError(err)
}

func (c *connectorImpl) GetTableConnector(name string) (table.ITableConnector, error) {
	ok, err := c.HasTable(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, table.WrapError(table.RetCTableNotFound, fmt.Sprintf("table %s does not exist", name), nil)
	}
	return &tableImpl{conn: c, name: name}, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getEngine returns the open engine or ErrNotOpen
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *connectorImpl) getEngine() (db.Engine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.engine == nil {
		return nil, table.ErrNotOpen
	}
	return c.engine, nil
}

// upgrade runs the migration if the stored version is below the layout version
func (c *connectorImpl) upgrade(engine db.Engine, migration table.MigrationFunc) error {
	current, err := engine.Version()
	if err != nil {
		return mapError(err)
	}

	target := c.layout.Version
	switch {
	case current > target:
		return table.WrapError(table.RetCVersion,
			fmt.Sprintf("stored version %d is newer than layout version %d", current, target), nil)
	case current == target:
		return nil
	}

	if migration == nil {
		migration = table.DefaultMigration(c.layout)
	}

	Logger.Infof("migrating database from version %d to %d", current, target)
	err = engine.Upgrade(target, func(tx db.UpgradeTx) error {
		return migration(&migrationImpl{tx: tx, oldVersion: current, newVersion: target})
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// createTable creates a store with the primary key path
func createTable(tx db.UpgradeTx, name string) error {
	if name == "" {
		return table.WrapError(table.RetCInternalError, "table name must not be empty", nil)
	}
	if tx.HasStore(name) {
		return table.WrapError(table.RetCTableExists, fmt.Sprintf("table %s already exists", name), nil)
	}
	_, err := tx.CreateStore(name, table.PrimaryKeyPath)
	return err
}

// mapError converts engine errors into table errors. Table errors are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var tErr *table.Error
	if errors.As(err, &tErr) {
		return err
	}
	switch {
	case errors.Is(err, db.ErrClosed):
		return table.WrapError(table.RetCNotOpen, "database not open", err)
	case errors.Is(err, db.ErrStoreNotFound):
		return table.WrapError(table.RetCTableNotFound, "table does not exist", err)
	case errors.Is(err, db.ErrStoreExists):
		return table.WrapError(table.RetCTableExists, "table already exists", err)
	case errors.Is(err, db.ErrIndexNotFound):
		return table.WrapError(table.RetCIndexNotFound, "index not found", err)
	case errors.Is(err, db.ErrVersion):
		return table.WrapError(table.RetCVersion, "version conflict", err)
	default:
		return table.WrapError(table.RetCInternalError, "internal error", err)
	}
}
