package room

import "sync"

// lockTable hands out one mutex per room code. Entries are reference counted
// and dropped once nobody holds or waits on them.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*codeLock
}

type codeLock struct {
	sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*codeLock)}
}

// lock blocks until the caller owns code and returns the release func.
func (t *lockTable) lock(code string) func() {
	t.mu.Lock()
	l, ok := t.locks[code]
	if !ok {
		l = &codeLock{}
		t.locks[code] = l
	}
	l.refs++
	t.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, code)
		}
		t.mu.Unlock()
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
