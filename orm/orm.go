// Package orm maps named models onto the positional table API of the
// storage core. A Model pairs a field schema with its backing table; the
// Registry owns model definitions for one database. Instances carry row data
// by field name and remember whether they are persisted.
package orm

import (
	"fmt"
	"sync"

	"rdb/database"
)

// Field describes one column of a model. The first field of every model is
// its integer primary key. Foreign key metadata is carried for scaffolding
// and schema output; referential integrity is not enforced.
type Field struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Primary    bool   `json:"primary" yaml:"primary"`
	ForeignKey bool   `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
	RefTable   string `json:"refTable,omitempty" yaml:"refTable,omitempty"`
	RefColumn  string `json:"refColumn,omitempty" yaml:"refColumn,omitempty"`
}

// Model is a named schema bound to its backing table.
type Model struct {
	Name   string
	Fields []Field

	table *database.Table
}

// Registry owns the models defined against one database.
type Registry struct {
	db *database.Database

	mu     sync.RWMutex
	models map[string]*Model
	order  []string
}

func NewRegistry(db *database.Database) *Registry {
	return &Registry{
		db:     db,
		models: make(map[string]*Model),
	}
}

// Define registers a model schema and creates its backing table. The first
// field must be the primary key and hold integer values.
func (r *Registry) Define(name string, fields []Field) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("model name must not be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("model %q must define at least one field", name)
	}
	if !fields[0].Primary {
		return nil, fmt.Errorf("model %q must mark its first field as the primary key", name)
	}
	if fields[0].Type != "int" {
		return nil, fmt.Errorf("model %q primary key %q must be an int, got %q", name, fields[0].Name, fields[0].Type)
	}
	if _, exists := r.models[name]; exists {
		return nil, fmt.Errorf("model %q already defined", name)
	}
	seen := make(map[string]bool, len(fields))
	columns := make([]string, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("model %q has an unnamed field at index %d", name, i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("model %q declares field %q twice", name, f.Name)
		}
		seen[f.Name] = true
		columns[i] = f.Name
	}

	table, err := r.db.CreateTable(name, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to create table for model %q: %w", name, err)
	}

	model := &Model{
		Name:   name,
		Fields: append([]Field(nil), fields...),
		table:  table,
	}
	r.models[name] = model
	r.order = append(r.order, name)
	return model, nil
}

// Get returns the named model.
func (r *Registry) Get(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("model %q is not defined", name)
	}
	return model, nil
}

// Models returns model names in definition order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// fieldIndex returns the position of the named field, or -1.
func (m *Model) fieldIndex(name string) int {
	for i, f := range m.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// PrimaryField returns the primary key field name.
func (m *Model) PrimaryField() string {
	return m.Fields[0].Name
}

// Compact compacts the model's backing table.
func (m *Model) Compact() error {
	return m.table.Compact()
}
