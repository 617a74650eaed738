package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/tuannm99/novakey/internal/index"
	"github.com/tuannm99/novakey/internal/record"
)

var (
	ErrBadIdent      = errors.New("catalog: invalid identifier")
	ErrTableNotFound = errors.New("catalog: table not found")
)

// TableMeta is stored as <dir>/tables/<name>.meta.json.
type TableMeta struct {
	Name      string        `json:"name"`
	Schema    record.Schema `json:"schema"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PKIndexName is the normalized name of a table's primary-key index.
func PKIndexName(table string) string {
	return index.NormalizeName("pk_" + table)
}

// ValidateIdent accepts [A-Za-z_][A-Za-z0-9_]* up to 64 bytes.
func ValidateIdent(s string) error {
	if s == "" || len(s) > 64 {
		return fmt.Errorf("%w: %q", ErrBadIdent, s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return fmt.Errorf("%w: %q", ErrBadIdent, s)
		}
	}
	return nil
}
