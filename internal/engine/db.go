package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tuannm99/novakey/internal/catalog"
	"github.com/tuannm99/novakey/internal/constraint"
	"github.com/tuannm99/novakey/internal/dberr"
	"github.com/tuannm99/novakey/internal/heap"
	"github.com/tuannm99/novakey/internal/index"
	locking "github.com/tuannm99/novakey/internal/lock"
	"github.com/tuannm99/novakey/internal/record"
)

var ErrDatabaseClosed = errors.New("novakey: database is closed")

// Table pairs a table's catalog entry with its row storage.
type Table struct {
	meta *catalog.TableMeta
	heap *heap.Table
}

func (t *Table) Name() string          { return t.meta.Name }
func (t *Table) Schema() record.Schema { return t.meta.Schema }

// Len is the number of live rows.
func (t *Table) Len() int { return t.heap.Len() }

var _ constraint.Table = (*Table)(nil)

// Database owns the catalog, row storage and primary-key indexes, and runs
// every write batch as check-then-commit under the table's write lock.
type Database struct {
	DataDir string
	Indexes *index.Store

	checker *constraint.Checker
	locks   *locking.TableLocks
	dir     *catalog.Dir

	mu     sync.RWMutex
	tables map[string]*Table
	closed bool
}

// NewDatabase creates an in-memory database. With a non-empty dataDir,
// table metadata is also written to disk.
func NewDatabase(dataDir string) *Database {
	store := index.NewStore()
	db := &Database{
		DataDir: dataDir,
		Indexes: store,
		checker: constraint.NewChecker(store),
		locks:   locking.NewTableLocks(),
		tables:  make(map[string]*Table),
	}
	if dataDir != "" {
		db.dir = &catalog.Dir{Root: dataDir}
	}
	return db
}

// Open creates a database and reloads table definitions persisted in
// dataDir. Reloaded tables start empty.
func Open(dataDir string) (*Database, error) {
	db := NewDatabase(dataDir)
	if db.dir == nil {
		return db, nil
	}
	metas, err := db.dir.List()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dataDir, err)
	}
	for _, m := range metas {
		if _, err := db.register(m); err != nil {
			return nil, err
		}
		slog.Debug("open: table loaded", "table", m.Name)
	}
	return db, nil
}

// Checker exposes the constraint checker bound to this database's indexes.
func (db *Database) Checker() *constraint.Checker { return db.checker }

func (db *Database) ensureOpen() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	return nil
}

func (db *Database) CreateTable(name string, schema record.Schema) (*Table, error) {
	if err := catalog.ValidateIdent(name); err != nil {
		return nil, dberr.Wrap(dberr.CategoryCatalog, dberr.CodeInvalidSchema, "create table", err)
	}
	if schema.PrimaryKey != nil {
		pk := *schema.PrimaryKey
		pk.Columns = slices.Clone(pk.Columns)
		pk.Name = catalog.PKIndexName(name)
		schema.PrimaryKey = &pk
	}
	if err := schema.Validate(); err != nil {
		return nil, dberr.Wrap(dberr.CategoryCatalog, dberr.CodeInvalidSchema,
			fmt.Sprintf("create table %s", name), err)
	}

	now := time.Now()
	meta := &catalog.TableMeta{
		Name:      name,
		Schema:    schema,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tbl, err := db.register(meta)
	if err != nil {
		return nil, err
	}
	if db.dir != nil {
		if err := db.dir.Write(meta); err != nil {
			_, _ = db.unregister(name)
			return nil, dberr.Wrap(dberr.CategoryStorage, dberr.CodeMetaWrite, "write table meta", err)
		}
	}
	slog.Info("table created", "table", name, "pk", schema.HasPrimaryKey())
	return tbl, nil
}

func (db *Database) register(meta *catalog.TableMeta) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	key := tableKey(meta.Name)
	if _, ok := db.tables[key]; ok {
		return nil, dberr.New(dberr.CategoryCatalog, dberr.CodeTableExists,
			fmt.Sprintf("table %s already exists", meta.Name))
	}
	if meta.Schema.HasPrimaryKey() {
		if _, err := db.Indexes.Create(meta.Schema.PrimaryKey.Name); err != nil {
			return nil, dberr.Wrap(dberr.CategoryCatalog, dberr.CodeInvalidSchema,
				fmt.Sprintf("create primary key index for %s", meta.Name), err)
		}
	}
	tbl := &Table{meta: meta, heap: heap.NewTable(meta.Name, meta.Schema)}
	db.tables[key] = tbl
	return tbl, nil
}

func (db *Database) unregister(name string) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := tableKey(name)
	tbl, ok := db.tables[key]
	if !ok {
		return nil, notFound(name)
	}
	delete(db.tables, key)
	if s := tbl.Schema(); s.HasPrimaryKey() {
		_ = db.Indexes.Drop(s.PrimaryKey.Name)
	}
	return tbl, nil
}

func (db *Database) DropTable(name string) error {
	release := db.locks.Acquire(name)
	defer release()

	tbl, err := db.unregister(name)
	if err != nil {
		return err
	}
	if db.dir != nil {
		if err := db.dir.Remove(tbl.Name()); err != nil && !errors.Is(err, catalog.ErrTableNotFound) {
			slog.Warn("drop table: meta file not removed", "table", name, "err", err)
		}
	}
	slog.Info("table dropped", "table", tbl.Name())
	return nil
}

// Table returns the named table.
func (db *Database) Table(name string) (*Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	tbl, ok := db.tables[tableKey(name)]
	if !ok {
		return nil, notFound(name)
	}
	return tbl, nil
}

// ListTables returns table metadata sorted by name.
func (db *Database) ListTables() []*catalog.TableMeta {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*catalog.TableMeta, 0, len(db.tables))
	for _, t := range db.tables {
		out = append(out, t.meta)
	}
	slices.SortFunc(out, func(a, b *catalog.TableMeta) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true
	return nil
}

// tableKey folds case: table names, their locks and their primary-key
// index names are all case-insensitive.
func tableKey(name string) string { return strings.ToLower(name) }

func notFound(name string) error {
	return dberr.Wrap(dberr.CategoryCatalog, dberr.CodeTableNotFound,
		fmt.Sprintf("table %s", name), catalog.ErrTableNotFound)
}
