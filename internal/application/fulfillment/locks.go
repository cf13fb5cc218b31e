package fulfillment

import (
	"sync"

	"github.com/google/uuid"
)

// orderLock is one entry in the lock table. The refcount counts holders and
// waiters so the entry can be dropped once the last one unlocks.
type orderLock struct {
	mu   sync.Mutex
	refs int
}

// lockTable hands out one mutex per order id and evicts an entry as soon as
// nobody holds or waits on it, so the table never outgrows the set of orders
// currently being worked on. The zero value is ready to use.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*orderLock
}

// acquire blocks until the caller holds the order's mutex and returns the
// matching unlock func. Unlocking releases the mutex and drops the table
// entry when no other caller references it.
func (t *lockTable) acquire(id uuid.UUID) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[uuid.UUID]*orderLock)
	}
	l, ok := t.locks[id]
	if !ok {
		l = &orderLock{}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, id)
		}
		t.mu.Unlock()
	}
}

// size reports how many order ids currently have a live entry
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
