package constraint

import (
	"fmt"

	"github.com/tuannm99/novakey/internal/dberr"
	"github.com/tuannm99/novakey/internal/index"
	"github.com/tuannm99/novakey/internal/record"
)

// Reason says which primary-key rule a batch broke.
type Reason string

const (
	// ReasonDuplicateExisting: an inserted key is already in the index.
	ReasonDuplicateExisting Reason = "duplicate_existing"
	// ReasonDuplicateInBatch: two rows of one batch carry the same key.
	ReasonDuplicateInBatch Reason = "duplicate_in_batch"
	// ReasonUpdateCollision: an updated key belongs to a different row,
	// either persisted or proposed by another row of the same batch.
	ReasonUpdateCollision Reason = "update_collision"
)

func (r Reason) code() string {
	switch r {
	case ReasonDuplicateExisting:
		return dberr.CodeDuplicateKey
	case ReasonDuplicateInBatch:
		return dberr.CodeDuplicateInBatch
	default:
		return dberr.CodeUpdateCollision
	}
}

// Violation is returned for any primary-key violation. It matches
// dberr.ErrConstraint under errors.Is.
type Violation struct {
	Table  string
	Index  string
	Key    index.Key
	Reason Reason

	// RowID is the batch row that triggered the violation.
	RowID record.RowID
	// ConflictingRowID is the persisted owner of Key, or the earlier batch
	// row that proposed it.
	ConflictingRowID record.RowID
}

func (v *Violation) Error() string {
	return fmt.Sprintf(
		"constraint: %s on %s.%s: key %s (row %d conflicts with row %d)",
		v.Reason, v.Table, v.Index, v.Key, v.RowID, v.ConflictingRowID,
	)
}

func (v *Violation) Unwrap() error {
	return dberr.New(dberr.CategoryConstraint, v.Reason.code(), string(v.Reason)).
		WithDetails(map[string]any{
			"table":              v.Table,
			"index":              v.Index,
			"key":                v.Key.String(),
			"row_id":             uint64(v.RowID),
			"conflicting_row_id": uint64(v.ConflictingRowID),
		})
}

var (
	// ErrMalformedRow marks rows that lack a key column or carry a key
	// value of the wrong type. It is a programmer error, not a violation.
	ErrMalformedRow = dberr.New(dberr.CategoryInvariant, dberr.CodeMalformedRow, "malformed row")
	// ErrMissingIndex: the table declares a primary key but the index
	// store has no index under its name.
	ErrMissingIndex = dberr.New(dberr.CategoryInvariant, dberr.CodeMissingIndex, "primary key index missing")
)

func malformed(table string, id record.RowID, cause error) error {
	return dberr.Wrap(dberr.CategoryInvariant, dberr.CodeMalformedRow,
		fmt.Sprintf("malformed row %d in %s", id, table), cause)
}
