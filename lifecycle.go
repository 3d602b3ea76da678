package pmap

// Reload re-attaches to the current backing file on disk, picking up
// any header/content changes written by another process sharing the
// same file. Callers coordinate their own cross-process locking; this
// only refreshes this process's view.
func (m *PMap[K, V]) Reload() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	sz := int64(regionSize(m.mask, entrySize[K, V]()))

	r, err := m.mgr.Open(m.name, sz)
	if err != nil {
		return wrapErr(err)
	}

	old := m.region
	m.attach(r)

	if old != nil && old != r {
		return old.Recycle()
	}
	return nil
}

// Reclaim is the explicit MMapGC collaborator hook. With force false it
// tries the write lock once, returning false if a writer holds it, and
// asserts that no reader holds the table open; with force true it
// blocks until it holds the write lock and in-flight readers have
// drained. It reclaims whichever region is currently attached, without
// comparing it against any other region, and returns whether anything
// was reclaimed. Unlike the original's implicit background scan, a Go
// caller is expected to invoke this itself — typically after a batch
// of writes it knows triggered growth — since Go has no equivalent of
// scanning process memory maps for stale mappings.
func (m *PMap[K, V]) Reclaim(force bool) bool {
	if !force {
		if !m.lock.TryLock() {
			return false
		}
		defer m.lock.Unlock()
	} else {
		m.lock.Lock()
		defer m.lock.Unlock()
	}

	assertf(m.lock.readers() == 0 || force, "reclaim attempted while readers active")
	return m.gcDone(force)
}

// gcDone is the real reclamation handshake: it snapshots the current
// header into the in-process fallback, actually unmaps the region via
// Recycle, and nulls out every pointer into it so nothing can
// dereference freed memory. The backing file itself is left in place,
// so the next Get/Set/Has/etc. that calls ensureAttached simply maps
// it again — this is the "reload if reclaimed" half of the collaborator
// contract; the caller-driven half is Reclaim above.
func (m *PMap[K, V]) gcDone(force bool) bool {
	if m.region == nil {
		return false
	}

	m.fallback = snapshotHeader(m.hdr)
	m.mask = m.hdr.mask

	if err := m.region.Recycle(); err != nil {
		panic(wrapErr(err))
	}
	m.detach()
	return true
}
