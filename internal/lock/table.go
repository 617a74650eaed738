package locking

import (
	"strings"
	"sync"
)

// refCount counts holders plus waiters of one entry. It is only touched
// under TableLocks.mu.
type refCount int32

func (r *refCount) inc() { *r++ }

// dec reports whether the count reached zero.
func (r *refCount) dec() bool {
	*r--
	if *r < 0 {
		panic("locking: refcount dropped below zero")
	}
	return *r == 0
}

type tableLock struct {
	mu   sync.Mutex
	refs refCount
}

// TableLocks hands out one write mutex per table name so that a batch's
// check and commit run as a single step. Entries live only while someone
// holds or waits for them.
type TableLocks struct {
	mu    sync.Mutex
	locks map[string]*tableLock
}

func NewTableLocks() *TableLocks {
	return &TableLocks{locks: make(map[string]*tableLock)}
}

// Acquire blocks until the table's lock is held and returns its release
// function. Release must be called exactly once.
func (l *TableLocks) Acquire(table string) (release func()) {
	name := strings.ToLower(table)

	l.mu.Lock()
	tl, ok := l.locks[name]
	if ok {
		tl.refs.inc()
	} else {
		tl = &tableLock{refs: 1}
		l.locks[name] = tl
	}
	l.mu.Unlock()

	tl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			tl.mu.Unlock()
			l.mu.Lock()
			if tl.refs.dec() {
				delete(l.locks, name)
			}
			l.mu.Unlock()
		})
	}
}

// Active reports how many table entries are currently held or awaited.
func (l *TableLocks) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
