package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tuannm99/novakey/internal/constraint"
	"github.com/tuannm99/novakey/internal/dberr"
	"github.com/tuannm99/novakey/internal/index"
	"github.com/tuannm99/novakey/internal/record"
)

// RowUpdate replaces the whole payload of row ID.
type RowUpdate struct {
	ID      record.RowID
	Payload map[string]any
}

// lockTable takes the table's write lock and resolves the table under it.
func (db *Database) lockTable(ctx context.Context, name string) (*Table, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	release := db.locks.Acquire(name)
	tbl, err := db.Table(name)
	if err != nil {
		release()
		return nil, nil, err
	}
	return tbl, release, nil
}

func (db *Database) pkIndex(tbl *Table) (*index.UniqueIndex, error) {
	s := tbl.Schema()
	if !s.HasPrimaryKey() {
		return nil, nil
	}
	ix, err := db.Indexes.Get(s.PrimaryKey.Name)
	if err != nil {
		return nil, dberr.Wrap(dberr.CategoryInvariant, dberr.CodeMissingIndex,
			fmt.Sprintf("primary key index of %s", tbl.Name()), err)
	}
	return ix, nil
}

func checkPayload(tbl *Table, id record.RowID, p map[string]any) error {
	if err := record.CheckPayload(tbl.Schema(), p); err != nil {
		return dberr.Wrap(dberr.CategoryInvariant, dberr.CodeMalformedRow,
			fmt.Sprintf("row %d of %s", id, tbl.Name()), err)
	}
	return nil
}

// Insert validates and commits a batch of new rows. Either every row is
// stored and indexed, or nothing is.
func (db *Database) Insert(ctx context.Context, table string, payloads []map[string]any) ([]record.RowID, error) {
	tbl, release, err := db.lockTable(ctx, table)
	if err != nil {
		return nil, err
	}
	defer release()

	batch := uuid.NewString()
	next := tbl.heap.NextID()
	rows := make([]record.Row, len(payloads))
	for i, p := range payloads {
		id := next + record.RowID(i)
		if err := checkPayload(tbl, id, p); err != nil {
			return nil, err
		}
		rows[i] = record.NewRow(id, p)
	}

	if err := db.checker.CheckInsert(tbl, rows); err != nil {
		slog.Info("insert rejected", "batch", batch, "table", table, "rows", len(rows), "err", err)
		return nil, err
	}

	ix, err := db.pkIndex(tbl)
	if err != nil {
		return nil, err
	}
	ids := make([]record.RowID, 0, len(rows))
	for _, r := range rows {
		id, err := tbl.heap.Insert(r.Payload())
		if err != nil {
			return ids, dberr.Wrap(dberr.CategoryInvariant, dberr.CodeMalformedRow, "insert", err)
		}
		if id != r.ID() {
			return ids, dberr.New(dberr.CategoryInvariant, dberr.CodeIndexCorrupt,
				fmt.Sprintf("row id drift: checked %d, stored %d", r.ID(), id))
		}
		if err := addKey(tbl, ix, r); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	slog.Debug("insert committed", "batch", batch, "table", table, "rows", len(ids))
	return ids, nil
}

// Update validates and commits a batch of full-row replacements. Rows must
// already exist. When an id appears more than once the last payload wins.
func (db *Database) Update(ctx context.Context, table string, updates []RowUpdate) error {
	tbl, release, err := db.lockTable(ctx, table)
	if err != nil {
		return err
	}
	defer release()

	batch := uuid.NewString()
	rows := make([]record.Row, len(updates))
	old := make(map[record.RowID]record.Row, len(updates))
	for i, u := range updates {
		if _, seen := old[u.ID]; !seen {
			cur, err := tbl.heap.Get(u.ID)
			if err != nil {
				return dberr.Wrap(dberr.CategoryStorage, dberr.CodeRowNotFound,
					fmt.Sprintf("update %s", table), err)
			}
			old[u.ID] = cur
		}
		if err := checkPayload(tbl, u.ID, u.Payload); err != nil {
			return err
		}
		rows[i] = record.NewRow(u.ID, u.Payload)
	}

	if err := db.checker.CheckPrimaryKeyUpdate(tbl, rows); err != nil {
		slog.Info("update rejected", "batch", batch, "table", table, "rows", len(rows), "err", err)
		return err
	}

	ix, err := db.pkIndex(tbl)
	if err != nil {
		return err
	}

	// Release every old key of the batch before claiming new ones.
	for _, cur := range old {
		if err := removeKey(tbl, ix, cur); err != nil {
			return err
		}
	}
	final := make(map[record.RowID]record.Row, len(old))
	for _, r := range rows {
		if err := tbl.heap.Update(r.ID(), r.Payload()); err != nil {
			return dberr.Wrap(dberr.CategoryStorage, dberr.CodeRowNotFound, "update", err)
		}
		final[r.ID()] = r
	}
	for _, r := range final {
		if err := addKey(tbl, ix, r); err != nil {
			return err
		}
	}

	slog.Debug("update committed", "batch", batch, "table", table, "rows", len(final))
	return nil
}

// Delete removes rows and releases their keys. All ids must exist.
func (db *Database) Delete(ctx context.Context, table string, ids []record.RowID) error {
	tbl, release, err := db.lockTable(ctx, table)
	if err != nil {
		return err
	}
	defer release()

	rows := make([]record.Row, 0, len(ids))
	seen := make(map[record.RowID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cur, err := tbl.heap.Get(id)
		if err != nil {
			return dberr.Wrap(dberr.CategoryStorage, dberr.CodeRowNotFound,
				fmt.Sprintf("delete %s", table), err)
		}
		rows = append(rows, cur)
	}

	ix, err := db.pkIndex(tbl)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := removeKey(tbl, ix, r); err != nil {
			return err
		}
		if err := tbl.heap.Delete(r.ID()); err != nil {
			return dberr.Wrap(dberr.CategoryStorage, dberr.CodeRowNotFound, "delete", err)
		}
	}
	slog.Debug("delete committed", "table", table, "rows", len(rows))
	return nil
}

// Get reads one row by id.
func (db *Database) Get(ctx context.Context, table string, id record.RowID) (record.Row, error) {
	tbl, release, err := db.lockTable(ctx, table)
	if err != nil {
		return record.Row{}, err
	}
	defer release()

	r, err := tbl.heap.Get(id)
	if err != nil {
		return record.Row{}, dberr.Wrap(dberr.CategoryStorage, dberr.CodeRowNotFound,
			fmt.Sprintf("get %s", table), err)
	}
	return r, nil
}

// LookupByKey finds the row owning the primary key made of values, given in
// key column order. found is false when no row owns it.
func (db *Database) LookupByKey(ctx context.Context, table string, values ...any) (row record.Row, found bool, err error) {
	tbl, release, err := db.lockTable(ctx, table)
	if err != nil {
		return record.Row{}, false, err
	}
	defer release()

	s := tbl.Schema()
	if !s.HasPrimaryKey() {
		return record.Row{}, false, dberr.New(dberr.CategoryCatalog, dberr.CodeInvalidSchema,
			fmt.Sprintf("table %s has no primary key", table))
	}
	if len(values) != len(s.PrimaryKey.Columns) {
		return record.Row{}, false, dberr.New(dberr.CategoryInvariant, dberr.CodeMalformedRow,
			fmt.Sprintf("key of %s has %d columns, got %d values", table, len(s.PrimaryKey.Columns), len(values)))
	}
	probe := make(map[string]any, len(values))
	for i, col := range s.PrimaryKey.Columns {
		probe[col] = values[i]
	}

	id, found, err := db.checker.FindExistingRowIDInPKIndex(tbl, record.NewRow(0, probe))
	if err != nil || !found {
		return record.Row{}, false, err
	}
	row, err = tbl.heap.Get(id)
	if err != nil {
		return record.Row{}, false, dberr.Wrap(dberr.CategoryInvariant, dberr.CodeIndexCorrupt,
			fmt.Sprintf("index of %s points at missing row %d", table, id), err)
	}
	return row, true, nil
}

// Scan visits every row of table in id order under the table lock.
func (db *Database) Scan(ctx context.Context, table string, fn func(record.Row) error) error {
	tbl, release, err := db.lockTable(ctx, table)
	if err != nil {
		return err
	}
	defer release()
	return tbl.heap.Scan(fn)
}

func addKey(tbl *Table, ix *index.UniqueIndex, r record.Row) error {
	if ix == nil {
		return nil
	}
	k, _, err := constraint.PrimaryKeyOf(tbl.Schema(), tbl.Name(), r)
	if err != nil {
		return err
	}
	if err := ix.Add(k, r.ID()); err != nil {
		// The checker passed, so this means the index and heap disagree.
		return dberr.Wrap(dberr.CategoryInvariant, dberr.CodeIndexCorrupt,
			fmt.Sprintf("index %s rejected key %s for row %d", ix.Name(), k, r.ID()), err)
	}
	return nil
}

func removeKey(tbl *Table, ix *index.UniqueIndex, r record.Row) error {
	if ix == nil {
		return nil
	}
	k, _, err := constraint.PrimaryKeyOf(tbl.Schema(), tbl.Name(), r)
	if err != nil {
		return err
	}
	if owner, ok := ix.Get(k); ok && owner == r.ID() {
		ix.Remove(k)
	}
	return nil
}
