package table

import (
	"fmt"
	"sort"
)

// Layout declares the tables and indexes of a database.
// The layout is applied whenever its version is higher than the stored version.
type Layout struct {
	Version uint64                 `json:"version" mapstructure:"version"`
	Tables  map[string]TableLayout `json:"tables" mapstructure:"tables"`
}

// TableLayout declares the indexes of a table
type TableLayout struct {
	Indexes []IndexLayout `json:"indexes" mapstructure:"indexes"`
}

// IndexLayout declares an index on a key path
type IndexLayout struct {
	KeyPath string `json:"keyPath" mapstructure:"keyPath"`
}

// Validate checks the layout for obvious mistakes
func (l Layout) Validate() error {
	if l.Version < 1 {
		return fmt.Errorf("layout version must be >= 1, got %d", l.Version)
	}
	for name, tbl := range l.Tables {
		if name == "" {
			return fmt.Errorf("table name must not be empty")
		}
		seen := map[string]bool{}
		for _, idx := range tbl.Indexes {
			if idx.KeyPath == "" {
				return fmt.Errorf("index of table %s has an empty key path", name)
			}
			if seen[idx.KeyPath] {
				return fmt.Errorf("index %s of table %s is declared twice", idx.KeyPath, name)
			}
			seen[idx.KeyPath] = true
		}
	}
	return nil
}

// TableNames returns the declared table names in sorted order
func (l Layout) TableNames() []string {
	names := make([]string, 0, len(l.Tables))
	for name := range l.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMigration returns a migration that brings the database in line with the layout:
//   - declared tables and indexes that are missing are created
//   - indexes that are no longer declared are deleted
//   - tables that are no longer declared are deleted
func DefaultMigration(layout Layout) MigrationFunc {
	return func(h IMigrationHandle) error {
		for _, name := range h.GetTables() {
			if _, ok := layout.Tables[name]; !ok {
				if err := h.DeleteTable(name); err != nil {
					return err
				}
			}
		}

		for _, name := range layout.TableNames() {
			tbl := layout.Tables[name]
			if !h.HasTable(name) {
				if err := h.CreateTable(name); err != nil {
					return err
				}
			}

			declared := map[string]bool{}
			for _, idx := range tbl.Indexes {
				declared[idx.KeyPath] = true
				ok, err := h.HasIndex(name, idx.KeyPath)
				if err != nil {
					return err
				}
				if !ok {
					if err := h.CreateIndex(name, idx.KeyPath); err != nil {
						return err
					}
				}
			}

			existing, err := h.GetIndexes(name)
			if err != nil {
				return err
			}
			for _, keyPath := range existing {
				if !declared[keyPath] {
					if err := h.DeleteIndex(name, keyPath); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
}
