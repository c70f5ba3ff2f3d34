// Package database implements the storage core: named tables backed by an
// append-only row file each, indexed by an in-memory B+ tree over the
// integer primary key. The Database type is the bounded registry that owns
// table lifecycle; all row-level logic lives on Table.
package database

import (
	"fmt"
	"os"
	"sync"
)

const (
	// MaxTables bounds how many tables a database may hold.
	MaxTables = 100
	// MaxColumns bounds how many columns a table may declare.
	MaxColumns = 100
)

// Database is a named collection of tables, looked up by name. It creates
// and destroys tables and has no row-level operations of its own.
type Database struct {
	name      string
	dir       string
	cacheRows int64

	mu     sync.RWMutex
	tables map[string]*Table
	order  []string
}

// New creates a database rooted at dir. cacheRows sizes each table's row
// cache; zero picks a default.
func New(name, dir string, cacheRows int64) (*Database, error) {
	if name == "" {
		return nil, fmt.Errorf("database name must not be empty")
	}
	if dir == "" {
		return nil, fmt.Errorf("database directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}
	return &Database{
		name:      name,
		dir:       dir,
		cacheRows: cacheRows,
		tables:    make(map[string]*Table),
	}, nil
}

func (db *Database) Name() string { return db.name }

func (db *Database) Dir() string { return db.dir }

// CreateTable registers a new table with the given ordered column list. The
// first column is the primary key column. The data file is created on disk
// if absent.
func (db *Database) CreateTable(name string, columns []string) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("table name must not be empty")
	}
	if len(db.tables) >= MaxTables {
		return nil, fmt.Errorf("table limit of %d reached", MaxTables)
	}
	if _, exists := db.tables[name]; exists {
		return nil, fmt.Errorf("table %q in database %q: %w", name, db.name, ErrTableExists)
	}
	if len(columns) == 0 || len(columns) > MaxColumns {
		return nil, fmt.Errorf("table %q needs between 1 and %d columns, got %d", name, MaxColumns, len(columns))
	}
	for i, col := range columns {
		if col == "" {
			return nil, fmt.Errorf("table %q has an empty column name at index %d", name, i)
		}
	}

	table, err := newTable(db.dir, name, columns, db.cacheRows)
	if err != nil {
		return nil, fmt.Errorf("failed to create table %q: %v", name, err)
	}

	db.tables[name] = table
	db.order = append(db.order, name)
	return table, nil
}

// GetTable returns the named table.
func (db *Database) GetTable(name string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	table, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q in database %q: %w", name, db.name, ErrTableNotFound)
	}
	return table, nil
}

// Tables returns table names in creation order.
func (db *Database) Tables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, len(db.order))
	copy(names, db.order)
	return names
}

// Close tears down every table, releasing file handles and caches. The
// database must not be used afterwards.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var firstErr error
	for _, name := range db.order {
		if table, ok := db.tables[name]; ok {
			if err := table.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	db.tables = make(map[string]*Table)
	db.order = nil
	return firstErr
}
