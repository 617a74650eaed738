package heap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novakey/internal/record"
)

// newTestTable creates a table with (id INT64, name TEXT, active BOOL).
func newTestTable(t *testing.T) *Table {
	t.Helper()
	schema := record.Schema{
		Cols: []record.Column{
			{Name: "id", Type: record.ColInt64, Nullable: false},
			{Name: "name", Type: record.ColText, Nullable: false},
			{Name: "active", Type: record.ColBool, Nullable: false},
		},
	}
	return NewTable("users", schema)
}

func payload(id int64, name string) map[string]any {
	return map[string]any{"id": id, "name": name, "active": true}
}

func TestTable_InsertAssignsIncreasingIDs(t *testing.T) {
	tbl := newTestTable(t)
	require.Equal(t, record.RowID(1), tbl.NextID())

	for i := int64(1); i <= 5; i++ {
		id, err := tbl.Insert(payload(i, "u"))
		require.NoError(t, err)
		require.Equal(t, record.RowID(i), id)
	}
	require.Equal(t, 5, tbl.Len())
	require.Equal(t, record.RowID(6), tbl.NextID())
}

func TestTable_InsertRejectsBadPayload(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.Insert(map[string]any{"id": "x", "name": "a", "active": true})
	require.ErrorIs(t, err, record.ErrTypeMismatch)
	require.Equal(t, record.RowID(1), tbl.NextID())
	require.Equal(t, 0, tbl.Len())
}

func TestTable_GetUpdateDelete(t *testing.T) {
	tbl := newTestTable(t)
	id, err := tbl.Insert(payload(1, "alice"))
	require.NoError(t, err)

	r, err := tbl.Get(id)
	require.NoError(t, err)
	require.Equal(t, id, r.ID())
	v, _ := r.Value("name")
	require.Equal(t, "alice", v)

	require.NoError(t, tbl.Update(id, payload(1, "bob")))
	r, err = tbl.Get(id)
	require.NoError(t, err)
	v, _ = r.Value("name")
	require.Equal(t, "bob", v)

	require.NoError(t, tbl.Delete(id))
	_, err = tbl.Get(id)
	require.ErrorIs(t, err, ErrRowNotFound)
	require.ErrorIs(t, tbl.Update(id, payload(1, "x")), ErrRowNotFound)
	require.ErrorIs(t, tbl.Delete(id), ErrRowNotFound)

	// Ids are not reused after delete.
	next, err := tbl.Insert(payload(2, "carol"))
	require.NoError(t, err)
	require.Equal(t, record.RowID(2), next)
}

func TestTable_StoredPayloadIsCopied(t *testing.T) {
	tbl := newTestTable(t)
	p := payload(1, "alice")
	id, err := tbl.Insert(p)
	require.NoError(t, err)
	p["name"] = "mallory"

	r, err := tbl.Get(id)
	require.NoError(t, err)
	v, _ := r.Value("name")
	require.Equal(t, "alice", v)
}

func TestTable_ScanInIDOrder(t *testing.T) {
	tbl := newTestTable(t)
	for i := int64(1); i <= 10; i++ {
		_, err := tbl.Insert(payload(i, "u"))
		require.NoError(t, err)
	}
	require.NoError(t, tbl.Delete(3))
	require.NoError(t, tbl.Delete(7))

	var seen []record.RowID
	err := tbl.Scan(func(r record.Row) error {
		seen = append(seen, r.ID())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []record.RowID{1, 2, 4, 5, 6, 8, 9, 10}, seen)

	stop := errors.New("stop")
	count := 0
	err = tbl.Scan(func(r record.Row) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 2, count)
}
