package index

import (
	"errors"

	"github.com/tuannm99/novakey/internal/record"
)

var ErrDuplicateKey = errors.New("index: key already owned by another row")

// UniqueIndex maps a key to the one row currently holding it.
// It has no internal locking; the write pipeline serializes access.
type UniqueIndex struct {
	name    string
	entries map[Key]record.RowID
}

func NewUniqueIndex(name string) *UniqueIndex {
	return &UniqueIndex{
		name:    name,
		entries: make(map[Key]record.RowID),
	}
}

func (ix *UniqueIndex) Name() string { return ix.name }

func (ix *UniqueIndex) Len() int { return len(ix.entries) }

func (ix *UniqueIndex) ContainsKey(k Key) bool {
	_, ok := ix.entries[k]
	return ok
}

// Get returns the row owning k.
func (ix *UniqueIndex) Get(k Key) (record.RowID, bool) {
	id, ok := ix.entries[k]
	return id, ok
}

// Add associates k with id. Re-adding the same (k, id) pair is a no-op;
// adding k for a different row fails and leaves the index unchanged.
func (ix *UniqueIndex) Add(k Key, id record.RowID) error {
	if cur, ok := ix.entries[k]; ok && cur != id {
		return ErrDuplicateKey
	}
	ix.entries[k] = id
	return nil
}

// Remove drops k and reports whether it was present.
func (ix *UniqueIndex) Remove(k Key) bool {
	if _, ok := ix.entries[k]; !ok {
		return false
	}
	delete(ix.entries, k)
	return true
}

// Clear drops every entry.
func (ix *UniqueIndex) Clear() {
	clear(ix.entries)
}
