package pmap

import "math/bits"

// Iterator walks live entries in slot order. It holds a read-lock
// bracket for its entire lifetime, which blocks growth (but not other
// readers) until Close is called — mirroring the original's
// ref_lock/ref_unlock pairing around iteration.
type Iterator[K comparable, V any] struct {
	m   *PMap[K, V]
	idx uint64
}

// Begin opens an iterator positioned at the first live entry, if any.
func (m *PMap[K, V]) Begin() *Iterator[K, V] {
	m.lock.RefLock()
	m.ensureAttached(false)
	it := &Iterator[K, V]{m: m, idx: 0}
	if len(m.info) == 0 || m.info[0] == 0 {
		it.fastForward()
	}
	return it
}

// Close releases the iterator's read-lock bracket. Must be called
// exactly once.
func (it *Iterator[K, V]) Close() {
	it.m.lock.RefUnlock()
}

// Valid reports whether the iterator is positioned on a live entry.
func (it *Iterator[K, V]) Valid() bool {
	return it.idx < uint64(len(it.m.slot))
}

func (it *Iterator[K, V]) Key() K   { return it.m.slot[it.idx].key }
func (it *Iterator[K, V]) Value() V { return it.m.slot[it.idx].val }

// Next advances to the following live entry.
func (it *Iterator[K, V]) Next() {
	it.idx++
	it.fastForward()
}

// fastForward skips empty slots eight at a time by treating the info
// array as a stream of uint64 words and counting trailing zero bytes,
// falling back to a byte scan for the final partial word.
func (it *Iterator[K, V]) fastForward() {
	info := it.m.info
	n := uint64(len(it.m.slot))

	for it.idx < n {
		if info[it.idx] != 0 {
			return
		}

		remaining := uint64(len(info)) - it.idx
		if remaining >= 8 {
			word := le64(info[it.idx : it.idx+8])
			if word != 0 {
				it.idx += uint64(bits.TrailingZeros64(word) / 8)
				return
			}
			it.idx += 8
			continue
		}
		it.idx++
	}
}

func le64(b []byte) uint64 {
	var w uint64
	for i := 7; i >= 0; i-- {
		w = w<<8 | uint64(b[i])
	}
	return w
}
