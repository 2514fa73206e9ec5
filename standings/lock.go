package standings

import "sync"

type entryKey struct {
	contestID uint64
	userID    uint64
}

type refMutex struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per standings entry. Idle mutexes are
// dropped so the map only holds entries with waiters.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[entryKey]*refMutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[entryKey]*refMutex)}
}

func (k *keyedMutex) Lock(key entryKey) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
