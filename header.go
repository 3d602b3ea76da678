package pmap

import "unsafe"

// rawHeader is the on-disk layout of the fixed 40-byte header block,
// cast directly onto the front of a mapped region. Field order is
// significant: mask must stay at offset 0, since it is what a reader
// checks first to tell a live header from a zeroed/truncated one.
type rawHeader struct {
	mask                  uint64
	numElements           uint64
	maxNumElementsAllowed uint64
	infoInc               uint64
	infoHashShift         uint64
}

func headerAt(base []byte) *rawHeader {
	return (*rawHeader)(unsafe.Pointer(&base[0]))
}

// localHeader is an in-process snapshot of a rawHeader, used as a
// fallback once the backing region has been unmapped out from under a
// caller (see lifecycle.go's gcDone). It is never itself memory-mapped.
type localHeader struct {
	mask                  uint64
	numElements           uint64
	maxNumElementsAllowed uint64
	infoInc               uint64
	infoHashShift         uint64
}

func snapshotHeader(h *rawHeader) localHeader {
	return localHeader{
		mask:                  h.mask,
		numElements:           h.numElements,
		maxNumElementsAllowed: h.maxNumElementsAllowed,
		infoInc:               h.infoInc,
		infoHashShift:         h.infoHashShift,
	}
}

// maxLoadElements returns the element count at which a table of
// numSlots slots must grow, given a load factor expressed as a whole
// percentage (e.g. 80 for 80%).
func maxLoadElements(numSlots, loadFactor100 uint64) uint64 {
	return numSlots * loadFactor100 / 100
}
