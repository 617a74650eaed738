package record

import "maps"

// RowID is the storage-assigned identity of a logical row. It is immutable
// for the row's lifetime and is never the key value itself.
type RowID uint64

// Row is one version of a logical row. Two Row values with the same ID may
// describe the same row before and after an update.
type Row struct {
	id      RowID
	payload map[string]any
}

// NewRow copies payload so later mutation by the caller does not leak in.
func NewRow(id RowID, payload map[string]any) Row {
	return Row{id: id, payload: maps.Clone(payload)}
}

func (r Row) ID() RowID { return r.id }

// Value returns the column value and whether the column is present.
func (r Row) Value(col string) (any, bool) {
	v, ok := r.payload[col]
	return v, ok
}

// Payload returns a copy of the row payload.
func (r Row) Payload() map[string]any {
	return maps.Clone(r.payload)
}
