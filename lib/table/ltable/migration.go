package ltable

import (
	"fmt"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/ValentinKolb/tKV/lib/table"
)

// migrationImpl implements table.IMigrationHandle inside a version change transaction.
// Indexes are named after their key path.
type migrationImpl struct {
	tx         db.UpgradeTx
	oldVersion uint64
	newVersion uint64
}

func (m *migrationImpl) OldVersion() uint64 { return m.oldVersion }
func (m *migrationImpl) NewVersion() uint64 { return m.newVersion }

func (m *migrationImpl) GetTables() []string {
	return m.tx.StoreNames()
}

func (m *migrationImpl) HasTable(name string) bool {
	return m.tx.HasStore(name)
}

func (m *migrationImpl) CreateTable(name string) error {
	if err := createTable(m.tx, name); err != nil {
		return mapError(err)
	}
	Logger.Infof("created table %s", name)
	return nil
}

func (m *migrationImpl) DeleteTable(name string) error {
	if !m.tx.HasStore(name) {
		return table.WrapError(table.RetCTableNotFound, fmt.Sprintf("table %s does not exist", name), nil)
	}
	if err := m.tx.DeleteStore(name); err != nil {
		return mapError(err)
	}
	Logger.Infof("deleted table %s", name)
	return nil
}

func (m *migrationImpl) GetIndexes(tableName string) ([]string, error) {
	store, err := m.store(tableName)
	if err != nil {
		return nil, err
	}
	return store.IndexNames(), nil
}

func (m *migrationImpl) HasIndex(tableName, keyPath string) (bool, error) {
	store, err := m.store(tableName)
	if err != nil {
		return false, err
	}
	_, err = store.Index(keyPath)
	return err == nil, nil
}

func (m *migrationImpl) CreateIndex(tableName, keyPath string) error {
	store, err := m.store(tableName)
	if err != nil {
		return err
	}
	if _, err := store.CreateIndex(keyPath, keyPath); err != nil {
		return mapError(err)
	}
	return nil
}

func (m *migrationImpl) DeleteIndex(tableName, keyPath string) error {
	store, err := m.store(tableName)
	if err != nil {
		return err
	}
	return mapError(store.DeleteIndex(keyPath))
}

func (m *migrationImpl) store(name string) (db.ObjectStore, error) {
	store, err := m.tx.Store(name)
	if err != nil {
		return nil, mapError(err)
	}
	return store, nil
}
