package record

import (
	"errors"
	"fmt"
	"strings"
)

type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColInt64
	ColBool
	ColFloat64
	ColText  // UTF-8
	ColBytes // opaque bytes
)

var colTypeNames = map[ColumnType]string{
	ColInt32:   "int32",
	ColInt64:   "int64",
	ColBool:    "bool",
	ColFloat64: "float64",
	ColText:    "text",
	ColBytes:   "bytes",
}

func (t ColumnType) String() string {
	if s, ok := colTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ColumnType(%d)", uint8(t))
}

// ParseColumnType maps a type name as written in config/script files.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int32", "int":
		return ColInt32, nil
	case "int64", "bigint":
		return ColInt64, nil
	case "bool", "boolean":
		return ColBool, nil
	case "float64", "double", "float":
		return ColFloat64, nil
	case "text", "string", "varchar":
		return ColText, nil
	case "bytes", "blob":
		return ColBytes, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColumnType, s)
}

var (
	ErrUnknownColumnType = errors.New("record: unknown column type")
	ErrDuplicateColumn   = errors.New("record: duplicate column name")
	ErrEmptyColumn       = errors.New("record: empty column name")
	ErrBadPrimaryKey     = errors.New("record: invalid primary key definition")
)

type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
}

// PrimaryKey describes the key columns of a table. Name is the normalized
// index name used to look the unique index up in the index store.
type PrimaryKey struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

type Schema struct {
	Cols       []Column    `json:"cols"`
	PrimaryKey *PrimaryKey `json:"primary_key,omitempty"`
}

func (s Schema) NumCols() int { return len(s.Cols) }

func (s Schema) HasPrimaryKey() bool {
	return s.PrimaryKey != nil && len(s.PrimaryKey.Columns) > 0
}

// ColPos returns the position of the named column, or -1.
func (s Schema) ColPos(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column definition.
func (s Schema) Column(name string) (Column, bool) {
	pos := s.ColPos(name)
	if pos < 0 {
		return Column{}, false
	}
	return s.Cols[pos], true
}

// KeyColumns returns the column definitions composing the primary key,
// in key order. Nil when the schema has no primary key.
func (s Schema) KeyColumns() ([]Column, error) {
	if !s.HasPrimaryKey() {
		return nil, nil
	}
	out := make([]Column, 0, len(s.PrimaryKey.Columns))
	for _, name := range s.PrimaryKey.Columns {
		col, ok := s.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: key column %q not in schema", ErrBadPrimaryKey, name)
		}
		out = append(out, col)
	}
	return out, nil
}

// Validate checks column names are unique and that the primary key only
// references existing, non-nullable columns.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Cols))
	for _, c := range s.Cols {
		if c.Name == "" {
			return ErrEmptyColumn
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		if _, ok := colTypeNames[c.Type]; !ok {
			return fmt.Errorf("%w: column %s", ErrUnknownColumnType, c.Name)
		}
		seen[c.Name] = struct{}{}
	}

	if s.PrimaryKey == nil {
		return nil
	}
	if len(s.PrimaryKey.Columns) == 0 {
		return fmt.Errorf("%w: no key columns", ErrBadPrimaryKey)
	}
	keySeen := make(map[string]struct{}, len(s.PrimaryKey.Columns))
	for _, name := range s.PrimaryKey.Columns {
		if _, dup := keySeen[name]; dup {
			return fmt.Errorf("%w: column %q repeated", ErrBadPrimaryKey, name)
		}
		keySeen[name] = struct{}{}
	}
	cols, err := s.KeyColumns()
	if err != nil {
		return err
	}
	for _, c := range cols {
		if c.Nullable {
			return fmt.Errorf("%w: key column %q is nullable", ErrBadPrimaryKey, c.Name)
		}
	}
	return nil
}
