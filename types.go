// Package novakey is the top-level facade of the primary-key constraint
// engine: tables, row storage, unique indexes and the constraint checker.
package novakey

import (
	"github.com/tuannm99/novakey/internal/constraint"
	"github.com/tuannm99/novakey/internal/dberr"
	"github.com/tuannm99/novakey/internal/engine"
	"github.com/tuannm99/novakey/internal/record"
)

type (
	Database   = engine.Database
	RowUpdate  = engine.RowUpdate
	Schema     = record.Schema
	Column     = record.Column
	PrimaryKey = record.PrimaryKey
	Row        = record.Row
	RowID      = record.RowID
	Violation  = constraint.Violation
)

// ErrConstraint matches every primary-key violation under errors.Is.
var ErrConstraint = dberr.ErrConstraint

func NewDatabase(dataDir string) *Database { return engine.NewDatabase(dataDir) }

func Open(dataDir string) (*Database, error) { return engine.Open(dataDir) }
