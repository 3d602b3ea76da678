package pmap

import (
	"runtime"
	"sync/atomic"
)

// tableLock serialises mutation against lookups and against region
// reclamation. It mirrors the original's split between a single
// exclusive "in use" flag for writers and a recursive counter for
// readers/iterators, rather than reaching for sync.RWMutex: the
// reclamation callback needs a non-blocking TryLock with no fairness
// guarantees, which sync.RWMutex doesn't expose.
type tableLock struct {
	inUse     atomic.Bool
	readCount atomic.Int64
}

// Lock spins until it acquires the exclusive writer slot and drains
// any readers that were already in flight when it did. RefLock refuses
// to admit new readers once inUse is set, so once readCount reaches
// zero here it stays there until Unlock.
func (l *tableLock) Lock() {
	for !l.inUse.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	for l.readCount.Load() > 0 {
		runtime.Gosched()
	}
}

func (l *tableLock) Unlock() {
	l.inUse.Store(false)
}

// TryLock attempts the exclusive slot once, without spinning. Used by
// the reclamation path, which must never block on user goroutines.
func (l *tableLock) TryLock() bool {
	return l.inUse.CompareAndSwap(false, true)
}

// RLock increments the recursive read count. Growth and reclamation
// both check this count is zero before proceeding, so RLock does not
// itself need to exclude writers — callers pair it with checking
// inUse where that matters (see RefLock).
func (l *tableLock) RLock() {
	l.readCount.Add(1)
}

func (l *tableLock) RUnlock() {
	l.readCount.Add(-1)
}

func (l *tableLock) readers() int64 {
	return l.readCount.Load()
}

// RefLock acquires a read-lock bracket suitable for holding a Ref
// across calls: it waits for any in-flight writer to finish before
// counting itself in, so a Ref taken under it is never handed out
// while growth is rewriting the slot array underneath it.
func (l *tableLock) RefLock() {
	for {
		l.RLock()
		if !l.inUse.Load() {
			return
		}
		l.RUnlock()
		runtime.Gosched()
	}
}

func (l *tableLock) RefUnlock() {
	l.RUnlock()
}
