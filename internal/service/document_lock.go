package service

import "sync"

// documentLocks serializes the read-modify-write cycles on one document's
// snapshot and suggestions. Entries are dropped when nobody holds them.
type documentLocks struct {
	mu    sync.Mutex
	locks map[string]*documentLock
}

type documentLock struct {
	sync.Mutex
	refs int
}

func newDocumentLocks() *documentLocks {
	return &documentLocks{locks: map[string]*documentLock{}}
}

// lock blocks until documentID is free and returns the matching unlock.
func (d *documentLocks) lock(documentID string) func() {
	d.mu.Lock()
	l, ok := d.locks[documentID]
	if !ok {
		l = &documentLock{}
		d.locks[documentID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, documentID)
		}
		d.mu.Unlock()
	}
}
