package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"rdb/bptree"
	"rdb/rowcache"
)

// Table is one named row store: an append-only data file, the B+ tree
// primary index over it, and the mutex that serializes every operation for
// its full duration. The file handle and cache are acquired once at creation
// and released at Close.
//
// The index lives only in memory. Opening a table over a pre-existing data
// file starts with an empty index; old rows become reachable again only
// through Compact, which is the sole code path that rebuilds the index from
// the file.
type Table struct {
	name    string
	columns []string
	path    string

	mu       sync.Mutex
	idx      *bptree.Tree
	file     *os.File
	cache    *rowcache.Cache
	disabled bool
}

func newTable(dir, name string, columns []string, cacheRows int64) (*Table, error) {
	tableDir := filepath.Join(dir, strings.ToLower(name))
	if err := os.MkdirAll(tableDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create table directory: %v", err)
	}
	path := filepath.Join(tableDir, strings.ToLower(name)+".dat")

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %v", path, err)
	}

	cache, err := rowcache.New(cacheRows)
	if err != nil {
		file.Close()
		return nil, err
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Table{
		name:    name,
		columns: cols,
		path:    path,
		idx:     bptree.New(),
		file:    file,
		cache:   cache,
	}, nil
}

func (t *Table) Name() string { return t.name }

func (t *Table) Path() string { return t.path }

// Columns returns a copy of the ordered column list. The first column is the
// primary key column.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len reports the number of live (indexed) rows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx.Len()
}

// Close releases the file handle and the row cache. The table must not be
// used afterwards.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache.Close()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	if err != nil {
		return fmt.Errorf("failed to close data file for table %q: %v", t.name, err)
	}
	return nil
}

func (t *Table) checkUsable() error {
	if t.disabled {
		return fmt.Errorf("table %q: %w", t.name, ErrTableDisabled)
	}
	if t.file == nil {
		return fmt.Errorf("table %q is closed", t.name)
	}
	return nil
}
