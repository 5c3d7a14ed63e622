package workflow

import "sync"

// chainLocks hands out one mutex per root chain so all mutations to a chain
// are serialized while independent chains proceed in parallel.
type chainLocks struct {
	mu    sync.Mutex
	locks map[string]*chainLock
}

type chainLock struct {
	sync.Mutex
	refs int
}

func newChainLocks() *chainLocks {
	return &chainLocks{locks: make(map[string]*chainLock)}
}

// Acquire blocks until the chain's lock is held and returns the release func.
// Entries are reference-counted and removed once unused, so the map does not
// grow with the number of chains ever touched.
func (c *chainLocks) Acquire(rootID string) func() {
	c.mu.Lock()
	l, ok := c.locks[rootID]
	if !ok {
		l = &chainLock{}
		c.locks[rootID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, rootID)
		}
		c.mu.Unlock()
	}
}
