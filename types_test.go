package novakey_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novakey"
	"github.com/tuannm99/novakey/internal/record"
)

func TestFacade_InsertDuplicate(t *testing.T) {
	db := novakey.NewDatabase("")
	_, err := db.CreateTable("items", novakey.Schema{
		Cols:       []novakey.Column{{Name: "sku", Type: record.ColText}},
		PrimaryKey: &novakey.PrimaryKey{Columns: []string{"sku"}},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = db.Insert(ctx, "items", []map[string]any{{"sku": "A-1"}})
	require.NoError(t, err)

	_, err = db.Insert(ctx, "items", []map[string]any{{"sku": "A-1"}})
	require.ErrorIs(t, err, novakey.ErrConstraint)

	var v *novakey.Violation
	require.True(t, errors.As(err, &v))
	require.Equal(t, novakey.RowID(1), v.ConflictingRowID)
	require.Equal(t, novakey.RowID(2), v.RowID)
}
