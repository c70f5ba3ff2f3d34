package orm

import (
	"fmt"
	"strconv"
)

// Instance is one row of a model, addressed by field name. A fresh instance
// has offset -1 until Save persists it; Delete resets it to -1.
type Instance struct {
	model  *Model
	values []string
	offset int64
}

// NewInstance returns an empty, unsaved instance of the model.
func (m *Model) NewInstance() *Instance {
	return &Instance{
		model:  m,
		values: make([]string, len(m.Fields)),
		offset: -1,
	}
}

func (inst *Instance) Model() *Model { return inst.model }

// Saved reports whether the instance is currently persisted.
func (inst *Instance) Saved() bool { return inst.offset >= 0 }

// Offset returns the data-file offset of the persisted row, or -1.
func (inst *Instance) Offset() int64 { return inst.offset }

// Set assigns a field value by name.
func (inst *Instance) Set(field, value string) error {
	i := inst.model.fieldIndex(field)
	if i < 0 {
		return fmt.Errorf("model %q has no field %q", inst.model.Name, field)
	}
	inst.values[i] = value
	return nil
}

// Get returns a field value by name.
func (inst *Instance) Get(field string) (string, error) {
	i := inst.model.fieldIndex(field)
	if i < 0 {
		return "", fmt.Errorf("model %q has no field %q", inst.model.Name, field)
	}
	return inst.values[i], nil
}

// Values returns the positional values in field order.
func (inst *Instance) Values() []string {
	out := make([]string, len(inst.values))
	copy(out, inst.values)
	return out
}

// PK parses the primary key value. It fails when the primary key field is
// empty or not an integer.
func (inst *Instance) PK() (int, error) {
	raw := inst.values[0]
	if raw == "" {
		return 0, fmt.Errorf("model %q instance is missing its primary key field %q", inst.model.Name, inst.model.PrimaryField())
	}
	pk, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("primary key %q of model %q is not an integer", raw, inst.model.Name)
	}
	return pk, nil
}

// Save persists the instance: an insert when it was never saved, an update
// otherwise. The primary key cannot change through Save.
func (inst *Instance) Save() error {
	pk, err := inst.PK()
	if err != nil {
		return err
	}

	var offset int64
	if inst.offset < 0 {
		offset, err = inst.model.table.InsertRow(pk, inst.values)
	} else {
		offset, err = inst.model.table.UpdateRow(pk, inst.values)
	}
	if err != nil {
		return fmt.Errorf("failed to save %q instance: %w", inst.model.Name, err)
	}
	inst.offset = offset
	return nil
}

// Delete removes the persisted row. The instance keeps its values but is no
// longer saved.
func (inst *Instance) Delete() error {
	if inst.offset < 0 {
		return fmt.Errorf("%q instance is not saved", inst.model.Name)
	}
	pk, err := inst.PK()
	if err != nil {
		return err
	}
	if err := inst.model.table.DeleteRow(pk); err != nil {
		return fmt.Errorf("failed to delete %q instance: %w", inst.model.Name, err)
	}
	inst.offset = -1
	return nil
}

// Find loads the instance with the given primary key.
func (m *Model) Find(pk int) (*Instance, error) {
	values, err := m.table.ReadRow(pk)
	if err != nil {
		return nil, err
	}
	offset, ok := m.table.Offset(pk)
	if !ok {
		offset = -1
	}
	return &Instance{model: m, values: values, offset: offset}, nil
}

// All returns every live instance in ascending primary-key order.
func (m *Model) All() ([]*Instance, error) {
	type row struct {
		key    int
		values []string
	}
	var rows []row
	err := m.table.Scan(func(key int, values []string) error {
		rows = append(rows, row{key: key, values: values})
		return nil
	})
	if err != nil {
		return nil, err
	}

	instances := make([]*Instance, 0, len(rows))
	for _, r := range rows {
		offset, ok := m.table.Offset(r.key)
		if !ok {
			offset = -1
		}
		instances = append(instances, &Instance{model: m, values: r.values, offset: offset})
	}
	return instances, nil
}
