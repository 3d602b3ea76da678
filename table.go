package pmap

// find, insert, and erase implement Robin Hood open addressing with
// backward-shift deletion. The info byte at a slot is 0 for empty, or
// 1+distance-from-ideal-bucket otherwise; a probe stops as soon as it
// meets a slot whose info byte is smaller than its own current
// distance, since Robin Hood's invariant guarantees no matching key
// could sit further down the chain.

const maxDistance = 250

func (m *PMap[K, V]) idealIdx(hash uint64) uint64 {
	return hash & m.hdr.mask
}

// find is the traversal shared by Find and Get. Callers must have
// already called ensureAttached; a table still running off the
// fallback header (no backing file yet) is by construction empty.
func (m *PMap[K, V]) find(k K) (V, bool) {
	if m.usingFallback {
		var zero V
		return zero, false
	}

	mask := m.hdr.mask
	idx := m.idealIdx(m.hashKey(k))
	dist := uint8(1)

	for {
		info := m.info[idx]
		if info == 0 || dist > info {
			var zero V
			return zero, false
		}
		if info == dist && m.slot[idx].key == k {
			return m.slot[idx].val, true
		}
		idx = (idx + 1) & mask
		dist++
	}
}

// ref is the traversal shared by TryRef and Ref.
func (m *PMap[K, V]) ref(k K) (*V, bool) {
	if m.usingFallback {
		return nil, false
	}

	mask := m.hdr.mask
	idx := m.idealIdx(m.hashKey(k))
	dist := uint8(1)

	for {
		info := m.info[idx]
		if info == 0 || dist > info {
			return nil, false
		}
		if info == dist && m.slot[idx].key == k {
			return &m.slot[idx].val, true
		}
		idx = (idx + 1) & mask
		dist++
	}
}

// TryRef returns a pointer into the live slot array for k and whether
// k was present, valid only while the caller continues to hold a
// read-lock bracket (Begin/Close, or an explicit RLock/RUnlock). Any
// growth invalidates it.
func (m *PMap[K, V]) TryRef(k K) (*V, bool) {
	return m.ref(k)
}

// Ref returns a pointer into the live slot array for k, panicking with
// an AssertionError if k is absent, mirroring the original's
// assert(idx >= 0) in ref(). Valid only within a read-lock bracket;
// use TryRef when a missing key is expected.
func (m *PMap[K, V]) Ref(k K) *V {
	v, ok := m.ref(k)
	assertf(ok, "ref: key not present")
	return v
}

// insert places (k, v), overwriting the value if k is already present.
// Caller must hold the write lock and must have already ensured
// headroom under the load factor.
func (m *PMap[K, V]) insert(k K, v V) bool {
	mask := m.hdr.mask
	idx := m.idealIdx(m.hashKey(k))
	dist := uint8(1)

	cur := entry[K, V]{key: k, val: v}
	swapping := false

	for {
		info := m.info[idx]

		if info == 0 {
			m.slot[idx] = cur
			m.info[idx] = dist
			m.hdr.numElements++
			return !swapping
		}

		if !swapping && info == dist && m.slot[idx].key == k {
			m.slot[idx].val = v
			return false
		}

		if dist > info {
			m.slot[idx], cur = cur, m.slot[idx]
			m.info[idx] = dist
			dist = info
			swapping = true
		}

		idx = (idx + 1) & mask
		dist++

		if dist > maxDistance {
			// After a swap, k already sits in the table and cur holds the
			// entry it displaced; rehash carries k over, so cur is what
			// still needs a home.
			m.rehash(2 * (mask + 1))
			added := m.insert(cur.key, cur.val)
			return swapping || added
		}
	}
}

func (m *PMap[K, V]) erase(k K) bool {
	mask := m.hdr.mask
	idx := m.idealIdx(m.hashKey(k))
	dist := uint8(1)

	for {
		info := m.info[idx]
		if info == 0 || dist > info {
			return false
		}
		if info == dist && m.slot[idx].key == k {
			m.shiftDown(idx)
			m.hdr.numElements--
			return true
		}
		idx = (idx + 1) & mask
		dist++
	}
}

// shiftDown pulls the chain following idx backward by one slot each,
// decrementing their distance, until it meets a slot at distance 0
// (ideal position) or an empty slot, then clears the vacated tail.
func (m *PMap[K, V]) shiftDown(idx uint64) {
	mask := m.hdr.mask
	next := (idx + 1) & mask

	for m.info[next] > 1 {
		m.slot[idx] = m.slot[next]
		m.info[idx] = m.info[next] - 1
		idx = next
		next = (next + 1) & mask
	}

	var zero entry[K, V]
	m.slot[idx] = zero
	m.info[idx] = 0
}
