package heap

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tuannm99/novakey/internal/record"
)

var ErrRowNotFound = errors.New("heap: row not found")

// Table is the in-memory row store of one table. Row ids are assigned from
// a counter starting at 1 and are never reused after Delete.
// For now we assume the caller serializes writes; no table-level lock here.
type Table struct {
	Name   string
	Schema record.Schema

	rows   map[record.RowID]map[string]any
	nextID record.RowID
}

func NewTable(name string, schema record.Schema) *Table {
	return &Table{
		Name:   name,
		Schema: schema,
		rows:   make(map[record.RowID]map[string]any),
		nextID: 1,
	}
}

// NextID peeks at the id the next Insert will assign.
func (t *Table) NextID() record.RowID { return t.nextID }

// Insert stores payload under a fresh row id.
func (t *Table) Insert(payload map[string]any) (record.RowID, error) {
	if err := record.CheckPayload(t.Schema, payload); err != nil {
		return 0, fmt.Errorf("heap: insert into %s: %w", t.Name, err)
	}
	id := t.nextID
	t.nextID++
	t.rows[id] = maps.Clone(payload)
	return id, nil
}

// Get reads a single row by id.
func (t *Table) Get(id record.RowID) (record.Row, error) {
	p, ok := t.rows[id]
	if !ok {
		return record.Row{}, fmt.Errorf("%w: %s#%d", ErrRowNotFound, t.Name, id)
	}
	return record.NewRow(id, p), nil
}

// Update replaces the payload of an existing row.
func (t *Table) Update(id record.RowID, payload map[string]any) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("%w: %s#%d", ErrRowNotFound, t.Name, id)
	}
	if err := record.CheckPayload(t.Schema, payload); err != nil {
		return fmt.Errorf("heap: update %s#%d: %w", t.Name, id, err)
	}
	t.rows[id] = maps.Clone(payload)
	return nil
}

// Delete removes a row.
func (t *Table) Delete(id record.RowID) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("%w: %s#%d", ErrRowNotFound, t.Name, id)
	}
	delete(t.rows, id)
	return nil
}

func (t *Table) Len() int { return len(t.rows) }

// Scan visits every live row in id order. A non-nil error from fn stops
// the scan and is returned.
func (t *Table) Scan(fn func(row record.Row) error) error {
	ids := slices.Sorted(maps.Keys(t.rows))
	for _, id := range ids {
		if err := fn(record.NewRow(id, t.rows[id])); err != nil {
			return err
		}
	}
	return nil
}
