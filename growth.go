package pmap

import (
	"github.com/netgraf/pmap/region"
)

// growForInsert doubles capacity whenever the load factor would be
// exceeded by the next insert. The original mmap_map.hpp first tries a
// cheaper in-place tryIncreaseInfo pass before paying for a full
// rehash; that optimization only pays off for a fingerprint-in-info
// scheme, which this port doesn't carry (see the distance-only info
// byte in table.go), so growth here goes straight to rehash.
func (m *PMap[K, V]) growForInsert() {
	m.rehash(2 * (m.hdr.mask + 1))
}

// rehash allocates a new region with newNumSlots slots, reinserts
// every live entry into it, and reclaims the old region once no
// readers remain. Caller must hold the write lock.
func (m *PMap[K, V]) rehash(newNumSlots uint64) {
	newMask := newNumSlots - 1
	sz := int64(regionSize(newMask, entrySize[K, V]()))

	oldRegion := m.region
	oldInfo := m.info
	oldSlot := m.slot

	newRegion, err := m.mgr.Grow(m.name, sz)
	if err != nil {
		panic(wrapErr(err))
	}

	oldElements := m.hdr.numElements
	m.mask = newMask
	m.attach(newRegion)
	m.initHeader(newMask)
	writeMask(m.dir, m.name, newMask)

	for i := range oldSlot {
		if oldInfo[i] == 0 {
			continue
		}
		e := oldSlot[i]
		m.insert(e.key, e.val)
	}
	assertf(m.hdr.numElements == oldElements, "rehash lost or duplicated elements")

	m.reclaim(oldRegion)
}

// reclaim hands the region rehash just superseded to region.ReclaimAll,
// which unlinks its backing file once the callback confirms no reader
// could still be dereferencing it — the gc_done contract from the
// original, applied here to spec.md's "unlink the current file... then
// recycle the old region" rehash step. rehash runs under the write
// lock, and RefLock refuses to admit new readers while a writer is
// active, so readers is already guaranteed to be zero for the entire
// call; the reader check below is a defensive mirror of the original's
// gc_done, not something that can actually block. It does not compare
// region identity.
func (m *PMap[K, V]) reclaim(old *region.Region) {
	err := region.ReclaimAll([]*region.Region{old}, func(r *region.Region, force bool) bool {
		return force || m.lock.readers() == 0
	}, false)
	if err != nil {
		panic(wrapErr(err))
	}
}
