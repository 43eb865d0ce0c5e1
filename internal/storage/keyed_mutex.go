package storage

import "sync"

// keyedMutex serializes read-modify-write sequences per key. Handlers run
// in parallel goroutines, so every mutation that reads a row, computes and
// writes back must hold the key for its (group, user) or group scope;
// otherwise two writers can observe the same pre-state and post-counts get
// gaps, or sqlite rejects the second transaction with "database is locked".
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for one key.
func (k *keyedMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for one key.
func (k *keyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}
