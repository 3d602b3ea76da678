package pmap

import (
	"os"
	"strconv"
	"sync"
	"unsafe"

	"github.com/netgraf/pmap/region"
)

// metaPath is a small sidecar recording the table's current mask, so a
// reopen after growth finds the region file the table actually grew
// into rather than the one it started life at. Grounded on the
// teacher's writeCapacity/readCapacity split in fileutil.go, which
// persisted N the same way alongside the mmap'd slab.
func metaPath(dir, name string) string {
	return dir + "/" + name + ".mask"
}

func writeMask(dir, name string, mask uint64) {
	_ = os.WriteFile(metaPath(dir, name), []byte(strconv.FormatUint(mask, 10)), 0644)
}

func readMask(dir, name string) (uint64, bool) {
	data, err := os.ReadFile(metaPath(dir, name))
	if err != nil {
		return 0, false
	}
	mask, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false
	}
	return mask, true
}

// PMap is a persistent, file-backed Robin Hood hash map. Zero value is
// not usable; construct with New or Open.
type PMap[K comparable, V any] struct {
	lock tableLock

	// attachMu serialises the check-then-map transition in
	// ensureAttached; it is independent of lock, which serialises
	// access to an already-mapped table.
	attachMu sync.Mutex

	mgr    *region.Manager
	dir    string
	name   string
	region *region.Region

	// mask is the table's logical slot count minus one. It stays valid
	// even while the table is detached (region == nil), so Size,
	// Capacity, and a future ensureAttached call always know how big
	// the region ought to be without touching disk.
	mask uint64

	loadFactor100 uint64
	initialSlots  uint64

	base []byte // full mapped region: header + info + slots
	hdr  *rawHeader
	info []byte
	slot []entry[K, V]

	// fallback is authoritative whenever usingFallback is set: either
	// the table has never had a backing file (nothing inserted since
	// New/Clear), or its region was reclaimed and hasn't been reloaded
	// yet. See ensureAttached and gcDone.
	fallback        localHeader
	usingFallback   bool
	hasher          Hasher[K]
	isDefaultHasher bool
}

// Option configures a PMap at construction time.
type Option[K comparable, V any] func(*PMap[K, V])

// WithHasher overrides the default size-dispatched Hasher. Using a
// non-default hasher enables bad-hash mitigation on every lookup.
func WithHasher[K comparable, V any](h Hasher[K]) Option[K, V] {
	return func(m *PMap[K, V]) {
		m.hasher = h
		m.isDefaultHasher = false
	}
}

// WithLoadFactor overrides the default 80% load factor with percent
// (a whole number, e.g. 70 for 70%). Must be set before the table's
// first allocation; it has no effect on an already-grown table.
func WithLoadFactor[K comparable, V any](percent uint64) Option[K, V] {
	return func(m *PMap[K, V]) {
		m.loadFactor100 = percent
	}
}

// WithInitialSlots overrides the default initial slot count of
// InitialSlots. Only takes effect on a fresh table (New, or Open of a
// table that was never written to).
func WithInitialSlots[K comparable, V any](n uint64) Option[K, V] {
	return func(m *PMap[K, V]) {
		m.initialSlots = n
	}
}

// New creates an empty table backed by files under dir, named name,
// deleting any region file and mask sidecar an earlier table of that
// name left there.
func New[K comparable, V any](dir, name string, opts ...Option[K, V]) *PMap[K, V] {
	return open[K, V](dir, name, true, opts)
}

// Open reopens an existing table created by New, reusing whatever
// capacity was last persisted to disk.
func Open[K comparable, V any](dir, name string, opts ...Option[K, V]) *PMap[K, V] {
	return open[K, V](dir, name, false, opts)
}

// open constructs a PMap without mapping anything: per spec, no
// mapping is created eagerly, so a table that is never written to
// never touches the filesystem beyond New's removal of earlier files.
// The first read consults the in-process fallback header; the first
// write (or a read against a table that already has a file on disk)
// triggers ensureAttached to actually map it.
func open[K comparable, V any](dir, name string, fresh bool, opts []Option[K, V]) *PMap[K, V] {
	m := &PMap[K, V]{
		mgr:             region.NewManager(dir),
		dir:             dir,
		name:            name,
		hasher:          DefaultHasher[K](),
		isDefaultHasher: true,
		loadFactor100:   defaultLoadFactor100,
		initialSlots:    InitialSlots,
	}
	for _, opt := range opts {
		opt(m)
	}

	mask := m.initialSlots - 1
	if fresh {
		if persisted, ok := readMask(dir, name); ok {
			_ = m.mgr.Remove(name, int64(regionSize(persisted, entrySize[K, V]())))
		}
		_ = os.Remove(metaPath(dir, name))
	} else if persisted, ok := readMask(dir, name); ok {
		mask = persisted
	}

	m.mask = mask
	m.resetFallback()

	return m
}

// resetFallback points the table at a pristine, empty in-process
// header for its current mask, with no backing region attached.
func (m *PMap[K, V]) resetFallback() {
	m.fallback = localHeader{
		mask:                  m.mask,
		numElements:           0,
		maxNumElementsAllowed: maxLoadElements(m.mask+1, m.loadFactor100),
		infoInc:               initialInfoInc,
		infoHashShift:         initialInfoHashShift,
	}
	m.detach()
}

func (m *PMap[K, V]) initHeader(mask uint64) {
	m.hdr.mask = mask
	m.hdr.numElements = 0
	m.hdr.maxNumElementsAllowed = maxLoadElements(mask+1, m.loadFactor100)
	m.hdr.infoInc = initialInfoInc
	m.hdr.infoHashShift = initialInfoHashShift
	// Sentinel byte: iteration's fastForward stops at len(m.slot)
	// regardless, but the on-disk layout promises a nonzero terminator
	// one past the last real info byte so a reader scanning raw bytes
	// (outside this package) can find the end without knowing mask.
	m.info[mask+1] = 1
}

// attach points m's header/info/slot views at r's mapped bytes and
// marks the table as live (not running off the in-process fallback).
func (m *PMap[K, V]) attach(r *region.Region) {
	m.region = r
	m.base = r.Bytes
	m.hdr = headerAt(m.base)

	mask := m.hdr.mask
	if mask == 0 && m.hdr.maxNumElementsAllowed == 0 {
		// Freshly zero-filled file: the real mask hasn't been written
		// yet, so use the mask this table was constructed/grown for.
		mask = m.mask
	}
	m.mask = mask

	infoLen := infoBytesLen(mask)
	m.info = m.base[headerSize : headerSize+infoLen]

	slotStart := headerSize + infoLen
	numSlots := mask + 1
	m.slot = unsafe.Slice((*entry[K, V])(unsafe.Pointer(&m.base[slotStart])), numSlots)

	m.usingFallback = false
}

// detach drops the live mapping and falls back to the in-process
// header. Called after gcDone unmaps a region and after unlinkAndReset
// deletes one; the next ensureAttached call remaps or recreates on
// demand.
func (m *PMap[K, V]) detach() {
	m.region = nil
	m.base = nil
	m.hdr = nil
	m.info = nil
	m.slot = nil
	m.usingFallback = true
}

// ensureAttached maps the backing region if it isn't already mapped.
// With create=false, a table whose file doesn't exist yet is left
// detached and reads are served from the fallback header (correctly
// reporting empty, per spec's no-eager-mapping requirement). With
// create=true, the file (and a fresh header) is created if missing.
// This is also the reload-on-demand path: after gcDone unmaps a region
// out from under the table, the next access of either kind re-attaches
// to the same file, which was never deleted.
func (m *PMap[K, V]) ensureAttached(create bool) {
	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	if m.region != nil {
		return
	}

	sz := int64(regionSize(m.mask, entrySize[K, V]()))
	existed := m.mgr.Exists(m.name, sz)
	if !create && !existed {
		return
	}

	r, err := m.mgr.Open(m.name, sz)
	if err != nil {
		panic(wrapErr(err))
	}
	m.attach(r)

	if !existed {
		m.initHeader(m.mask)
		writeMask(m.dir, m.name, m.mask)
	}
}

// Close flushes and unmaps the backing region. The PMap must not be
// used afterward.
func (m *PMap[K, V]) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.region == nil {
		return nil
	}
	return m.region.Recycle()
}

// Size returns the number of live entries.
func (m *PMap[K, V]) Size() uint64 {
	m.lock.RefLock()
	defer m.lock.RefUnlock()
	m.ensureAttached(false)
	if m.usingFallback {
		return m.fallback.numElements
	}
	return m.hdr.numElements
}

// Empty reports whether the table holds no entries.
func (m *PMap[K, V]) Empty() bool {
	return m.Size() == 0
}

// Capacity returns the number of slots currently allocated.
func (m *PMap[K, V]) Capacity() uint64 {
	m.lock.RefLock()
	defer m.lock.RefUnlock()
	m.ensureAttached(false)
	if m.usingFallback {
		return m.fallback.mask + 1
	}
	return m.hdr.mask + 1
}

// Find looks up k, returning its value and whether it was present.
// Unlike Get, a missing key is not an error.
func (m *PMap[K, V]) Find(k K) (V, bool) {
	m.lock.RefLock()
	defer m.lock.RefUnlock()
	m.ensureAttached(false)
	return m.find(k)
}

// Get looks up k, panicking with an AssertionError if it is absent.
// Grounded on the original's get(), which asserts idx >= 0 rather than
// returning a sentinel — callers that expect a key might be missing
// should use Find or Has instead.
func (m *PMap[K, V]) Get(k K) V {
	v, ok := m.Find(k)
	assertf(ok, "get: key not present")
	return v
}

// RLock opens a read-lock bracket, blocking any concurrent growth
// until RUnlock, and ensures the table is attached (or genuinely
// empty). Ref is only safe to dereference within such a bracket
// (Begin/Close or RLock/RUnlock).
func (m *PMap[K, V]) RLock() {
	m.lock.RefLock()
	m.ensureAttached(false)
}

// RUnlock closes a bracket opened by RLock.
func (m *PMap[K, V]) RUnlock() {
	m.lock.RefUnlock()
}

// Has reports whether k is present.
func (m *PMap[K, V]) Has(k K) bool {
	_, ok := m.Find(k)
	return ok
}

// Set inserts or updates k, returning true if a new entry was added.
func (m *PMap[K, V]) Set(k K, v V) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensureAttached(true)

	if m.hdr.numElements >= m.hdr.maxNumElementsAllowed {
		m.growForInsert()
	}

	return m.insert(k, v)
}

// Erase removes k, returning true if it was present. Once the last
// entry is removed the backing file is unlinked, matching Clear.
func (m *PMap[K, V]) Erase(k K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensureAttached(false)
	if m.usingFallback {
		return false
	}

	if !m.erase(k) {
		return false
	}
	if m.hdr.numElements == 0 {
		m.unlinkAndReset()
	}
	return true
}

// Reserve grows the table so it can hold at least n elements without
// rehashing again, if it isn't already that large.
func (m *PMap[K, V]) Reserve(n uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensureAttached(true)
	for m.hdr.maxNumElementsAllowed < n {
		m.rehash(2 * (m.hdr.mask + 1))
	}
}

// Clear removes every entry and unlinks the backing file: per the
// on-disk invariant, the file exists iff the table holds data written
// since the last clear. The next Set recreates it from scratch.
//
// Asserts no read-lock bracket (Begin/Close, RLock/RUnlock) is currently
// held, rather than blocking until one releases: blocking here would
// self-deadlock a caller that holds its own read lock, and silently
// stalling for another goroutine's contradicts the fail-fast contract
// precondition violations get everywhere else in this package.
func (m *PMap[K, V]) Clear() {
	assertf(m.lock.readers() == 0, "clear: read-locks held")
	m.lock.Lock()
	defer m.lock.Unlock()
	m.ensureAttached(false)
	if m.usingFallback {
		return
	}
	m.unlinkAndReset()
}

// unlinkAndReset deletes the backing region file and its mask sidecar,
// then resets the table to the same not-yet-attached state a fresh New
// leaves it in. Shared by Clear and by Erase once the last element is
// removed.
func (m *PMap[K, V]) unlinkAndReset() {
	if err := m.region.DeleteFile(); err != nil {
		panic(wrapErr(err))
	}
	_ = os.Remove(metaPath(m.dir, m.name))

	m.mask = m.initialSlots - 1
	m.resetFallback()
}

func (m *PMap[K, V]) hashKey(k K) uint64 {
	h := m.hasher.Hash(k)
	if !m.isDefaultHasher {
		h *= badHashMultiplier64
	}
	return h
}
