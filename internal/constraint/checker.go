// Package constraint validates primary-key integrity of write batches
// before they are committed. The checker only reads the index; adding and
// removing keys is the commit path's job.
package constraint

import (
	"fmt"

	"github.com/tuannm99/novakey/internal/dberr"
	"github.com/tuannm99/novakey/internal/index"
	"github.com/tuannm99/novakey/internal/record"
)

// IndexSource resolves a normalized index name to its unique index.
// *index.Store satisfies it.
type IndexSource interface {
	Get(name string) (*index.UniqueIndex, error)
}

// Table is the schema side of a table as seen by the checker.
type Table interface {
	Name() string
	Schema() record.Schema
}

// Checker holds no per-table state; all context comes in through the
// arguments of each call.
type Checker struct {
	indexes IndexSource
}

func NewChecker(src IndexSource) *Checker {
	return &Checker{indexes: src}
}

// pk is the per-call view of a table's primary key.
type pk struct {
	table string
	name  string
	cols  []record.Column
	ix    *index.UniqueIndex
}

// resolve returns nil when the table has no primary key.
func (c *Checker) resolve(t Table) (*pk, error) {
	s := t.Schema()
	if !s.HasPrimaryKey() {
		return nil, nil
	}
	cols, err := s.KeyColumns()
	if err != nil {
		return nil, dberr.Wrap(dberr.CategoryInvariant, dberr.CodeInvalidSchema,
			fmt.Sprintf("primary key of %s", t.Name()), err)
	}
	name := index.NormalizeName(s.PrimaryKey.Name)
	ix, err := c.indexes.Get(name)
	if err != nil {
		return nil, dberr.Wrap(dberr.CategoryInvariant, dberr.CodeMissingIndex,
			fmt.Sprintf("primary key index %q of %s", name, t.Name()), err)
	}
	return &pk{table: t.Name(), name: name, cols: cols, ix: ix}, nil
}

func (p *pk) key(r record.Row) (index.Key, error) {
	parts := make([]any, len(p.cols))
	for i, col := range p.cols {
		v, ok := r.Value(col.Name)
		if !ok || v == nil {
			return "", malformed(p.table, r.ID(),
				fmt.Errorf("missing primary key column %s", col.Name))
		}
		if err := record.CheckValue(col, v); err != nil {
			return "", malformed(p.table, r.ID(), err)
		}
		parts[i] = v
	}
	k, err := index.EncodeKey(parts...)
	if err != nil {
		return "", malformed(p.table, r.ID(), err)
	}
	return k, nil
}

// PrimaryKeyOf extracts the encoded primary key of r. ok is false when the
// table has no primary key.
func PrimaryKeyOf(s record.Schema, tableName string, r record.Row) (k index.Key, ok bool, err error) {
	if !s.HasPrimaryKey() {
		return "", false, nil
	}
	cols, err := s.KeyColumns()
	if err != nil {
		return "", false, err
	}
	p := &pk{table: tableName, cols: cols}
	k, err = p.key(r)
	if err != nil {
		return "", false, err
	}
	return k, true, nil
}

// CheckPrimaryKeyExistence fails if any row's key is already owned in the
// index. Duplicates among the rows themselves are not looked at here.
func (c *Checker) CheckPrimaryKeyExistence(t Table, rows []record.Row) error {
	p, err := c.resolve(t)
	if err != nil || p == nil {
		return err
	}
	for _, r := range rows {
		k, err := p.key(r)
		if err != nil {
			return err
		}
		if owner, ok := p.ix.Get(k); ok {
			return &Violation{
				Table:            p.table,
				Index:            p.name,
				Key:              k,
				Reason:           ReasonDuplicateExisting,
				RowID:            r.ID(),
				ConflictingRowID: owner,
			}
		}
	}
	return nil
}

// FindExistingRowIDInPKIndex returns the id of the row currently owning
// row's key. found is false when the key is unowned or the table has no
// primary key.
func (c *Checker) FindExistingRowIDInPKIndex(t Table, row record.Row) (id record.RowID, found bool, err error) {
	p, err := c.resolve(t)
	if err != nil || p == nil {
		return 0, false, err
	}
	k, err := p.key(row)
	if err != nil {
		return 0, false, err
	}
	id, found = p.ix.Get(k)
	return id, found, nil
}

// CheckPrimaryKeysUnique fails on the first key that appears twice in rows,
// whether or not the key exists in the index.
func (c *Checker) CheckPrimaryKeysUnique(t Table, rows []record.Row) error {
	p, err := c.resolve(t)
	if err != nil || p == nil {
		return err
	}
	seen := make(map[index.Key]record.RowID, len(rows))
	for _, r := range rows {
		k, err := p.key(r)
		if err != nil {
			return err
		}
		if first, dup := seen[k]; dup {
			return &Violation{
				Table:            p.table,
				Index:            p.name,
				Key:              k,
				Reason:           ReasonDuplicateInBatch,
				RowID:            r.ID(),
				ConflictingRowID: first,
			}
		}
		seen[k] = r.ID()
	}
	return nil
}

// CheckPrimaryKeyUpdate validates a batch of post-update rows. A row may keep
// its own key; it may not take a key owned by a different persisted row, and
// two different rows of the batch may not propose the same key. Rows sharing
// an id are one row seen twice.
func (c *Checker) CheckPrimaryKeyUpdate(t Table, rows []record.Row) error {
	p, err := c.resolve(t)
	if err != nil || p == nil {
		return err
	}
	claimed := make(map[index.Key]record.RowID, len(rows))
	for _, r := range rows {
		k, err := p.key(r)
		if err != nil {
			return err
		}
		if owner, ok := p.ix.Get(k); ok && owner != r.ID() {
			return &Violation{
				Table:            p.table,
				Index:            p.name,
				Key:              k,
				Reason:           ReasonUpdateCollision,
				RowID:            r.ID(),
				ConflictingRowID: owner,
			}
		}
		if first, ok := claimed[k]; ok && first != r.ID() {
			return &Violation{
				Table:            p.table,
				Index:            p.name,
				Key:              k,
				Reason:           ReasonUpdateCollision,
				RowID:            r.ID(),
				ConflictingRowID: first,
			}
		}
		if _, ok := claimed[k]; !ok {
			claimed[k] = r.ID()
		}
	}
	return nil
}

// CheckInsert runs the checks an insert batch needs: keys must be new to
// the index and distinct within the batch.
func (c *Checker) CheckInsert(t Table, rows []record.Row) error {
	if err := c.CheckPrimaryKeyExistence(t, rows); err != nil {
		return err
	}
	return c.CheckPrimaryKeysUnique(t, rows)
}
