package pricing

import "sync"

// keyLock serializes work per symbol while letting different symbols proceed
// in parallel. Entries are dropped once no goroutine holds or waits on them.
type keyLock struct {
	globalMu sync.Mutex
	locks    map[string]*symbolLock
}

type symbolLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*symbolLock)}
}

// Lock blocks until the caller holds symbol. The returned func releases it.
func (k *keyLock) Lock(symbol string) func() {
	k.globalMu.Lock()
	l, ok := k.locks[symbol]
	if !ok {
		l = &symbolLock{}
		k.locks[symbol] = l
	}
	l.refs++
	k.globalMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.globalMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, symbol)
		}
		k.globalMu.Unlock()
	}
}

// size returns the number of symbols currently tracked.
func (k *keyLock) size() int {
	k.globalMu.Lock()
	defer k.globalMu.Unlock()
	return len(k.locks)
}
