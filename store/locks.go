// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package store

import "sync"

// serialLocks hands out one mutex per certificate key. Entries are dropped
// once no goroutine holds or waits for them.
type serialLocks struct {
	mu    sync.Mutex
	locks map[string]*serialLock
}

type serialLock struct {
	sync.Mutex
	refs int
}

func newSerialLocks() *serialLocks {
	return &serialLocks{
		locks: make(map[string]*serialLock),
	}
}

func (sl *serialLocks) lock(key string) func() {
	sl.mu.Lock()
	l, ok := sl.locks[key]
	if !ok {
		l = &serialLock{}
		sl.locks[key] = l
	}
	l.refs++
	sl.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		sl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(sl.locks, key)
		}
		sl.mu.Unlock()
	}
}
