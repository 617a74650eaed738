package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novakey/internal/record"
)

func testMeta(name string) *TableMeta {
	return &TableMeta{
		Name: name,
		Schema: record.Schema{
			Cols: []record.Column{
				{Name: "id", Type: record.ColText},
				{Name: "age", Type: record.ColInt64, Nullable: true},
			},
			PrimaryKey: &record.PrimaryKey{Name: PKIndexName(name), Columns: []string{"id"}},
		},
	}
}

func TestDir_WriteReadRoundTrip(t *testing.T) {
	d := Dir{Root: t.TempDir()}

	m := testMeta("users")
	require.NoError(t, d.Write(m))
	require.False(t, m.UpdatedAt.IsZero())

	_, err := os.Stat(filepath.Join(d.Root, "tables", "users.meta.json"))
	require.NoError(t, err)

	got, err := d.Read("users")
	require.NoError(t, err)
	require.Equal(t, m.Name, got.Name)
	require.Equal(t, m.Schema, got.Schema)
}

func TestDir_ListAndRemove(t *testing.T) {
	d := Dir{Root: t.TempDir()}

	metas, err := d.List()
	require.NoError(t, err)
	require.Empty(t, metas)

	for _, n := range []string{"orders", "users", "accounts"} {
		require.NoError(t, d.Write(testMeta(n)))
	}
	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(d.Root, "tables", "notes.txt"), []byte("x"), 0o644))

	metas, err = d.List()
	require.NoError(t, err)
	require.Len(t, metas, 3)
	require.Equal(t, "accounts", metas[0].Name)
	require.Equal(t, "users", metas[2].Name)

	require.NoError(t, d.Remove("orders"))
	require.ErrorIs(t, d.Remove("orders"), ErrTableNotFound)
	_, err = d.Read("orders")
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestPKIndexName(t *testing.T) {
	require.Equal(t, "pk_users", PKIndexName("Users"))
}

func TestValidateIdent(t *testing.T) {
	for _, ok := range []string{"users", "_t", "T1", "order_items"} {
		require.NoError(t, ValidateIdent(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "a-b", "a b", "../etc", string(make([]byte, 65))} {
		require.ErrorIs(t, ValidateIdent(bad), ErrBadIdent, bad)
	}
}
