package javac

import (
	"sort"
	"sync"
)

// paths serializes compiles that share an index file or output directory.
var paths keyedMutex

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex of every key, in sorted order so that two
// callers locking overlapping sets cannot deadlock.
func (k *keyedMutex) lock(keys ...string) (unlock func()) {
	keys = dedup(keys)
	held := make([]*refMutex, 0, len(keys))
	for _, key := range keys {
		m := k.acquire(key)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			k.release(keys[i])
		}
	}
}

func (k *keyedMutex) acquire(key string) *refMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m := k.locks[key]
	if m == nil {
		m = new(refMutex)
		k.locks[key] = m
	}
	m.refs++
	return m
}

func (k *keyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m := k.locks[key]
	if m.refs--; m.refs == 0 {
		delete(k.locks, key)
	}
}

func dedup(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	j := 0
	for i, key := range out {
		if i == 0 || key != out[j-1] {
			out[j] = key
			j++
		}
	}
	return out[:j]
}
