package service

import "sync"

// keyedMutex serializes the conflict-check-and-write sequence per
// (organization, user) key. Without it, two concurrent creates for the same
// user can each observe a conflict-free world and both commit, violating the
// 100% capacity invariant.
//
// Entries are never removed; the map is bounded by the number of distinct
// (organization, user) pairs that ever write.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
