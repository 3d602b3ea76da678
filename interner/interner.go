// Package interner stores variable-length payloads (strings, byte
// blobs) in a growable mmap'd slab and hands back a fixed-size Handle
// that a pmap.PMap can use as a value, since PMap slots must be
// fixed-size. Grounded on the teacher's slab.go append/grow pattern,
// generalized from raw key/value byte pairs to length-prefixed
// msgpack records with content-hash dedup.
package interner

import (
	"encoding/binary"
	"unsafe"

	goerrors "github.com/go-errors/errors"
	"github.com/segmentio/fasthash/fnv1"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/netgraf/pmap"
	"github.com/netgraf/pmap/region"
)

// Handle is an 8-byte offset into the slab where a payload's
// length-prefixed record begins. It is safe to store as a pmap value.
type Handle uint64

const initialSlabSize = 4 * 1024 * 1024

// Interner deduplicates payloads by content hash: interning the same
// bytes twice returns the same Handle.
type Interner struct {
	mgr    *region.Manager
	name   string
	region *region.Region
	slab   []byte
	offset uint64
	size   int64

	dedup *pmap.PMap[uint64, Handle]
}

// Open creates or reopens an interner rooted at dir, named name.
func Open(dir, name string) (*Interner, error) {
	mgr := region.NewManager(dir)
	r, err := mgr.Open(name+"-slab", initialSlabSize)
	if err != nil {
		return nil, err
	}

	in := &Interner{
		mgr:    mgr,
		name:   name,
		region: r,
		slab:   r.Bytes,
		size:   initialSlabSize,
		dedup:  pmap.New[uint64, Handle](dir, name+"-dedup"),
	}

	if in.readOffset() == 0 {
		in.writeOffset(8) // reserve offset 0 as "no handle"
	}

	return in, nil
}

func (in *Interner) readOffset() uint64 {
	return binary.LittleEndian.Uint64(in.slab[:8])
}

func (in *Interner) writeOffset(off uint64) {
	binary.LittleEndian.PutUint64(in.slab[:8], off)
}

// Intern stores payload if it hasn't been seen before and returns its
// Handle either way.
func (in *Interner) Intern(payload []byte) (Handle, error) {
	h := fnv1.HashBytes64(payload)
	if handle, ok := in.dedup.Find(h); ok {
		return handle, nil
	}

	record, err := msgpack.Marshal(payload)
	if err != nil {
		return 0, goerrors.Wrap(err, 1)
	}

	handle, err := in.append(record)
	if err != nil {
		return 0, err
	}

	in.dedup.Set(h, handle)
	return handle, nil
}

// Lookup returns the payload stored at handle.
func (in *Interner) Lookup(handle Handle) ([]byte, error) {
	off := uint64(handle)
	var payload []byte
	if err := msgpack.Unmarshal(in.recordAt(off), &payload); err != nil {
		return nil, goerrors.Wrap(err, 1)
	}
	return payload, nil
}

// recordAt returns the raw msgpack bytes starting at off, sized by the
// msgpack bin header's own length prefix.
func (in *Interner) recordAt(off uint64) []byte {
	// msgpack bin8/16/32 headers self-describe their length; hand the
	// decoder the rest of the slab and let it stop where the record ends.
	return in.slab[off:]
}

func (in *Interner) append(record []byte) (Handle, error) {
	off := in.readOffset()
	need := off + uint64(len(record))

	if need > uint64(in.size) {
		if err := in.grow(); err != nil {
			return 0, err
		}
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&in.slab[off])), len(record))
	copy(dst, record)
	in.writeOffset(need)

	return Handle(off), nil
}

func (in *Interner) grow() error {
	newSize := in.size * 2
	r, err := in.mgr.Grow(in.name+"-slab", newSize)
	if err != nil {
		return err
	}

	// Grow maps a brand-new, zero-filled region; the previous slab's
	// bytes must be copied across before switching over, or every
	// payload interned so far becomes unreachable.
	copy(r.Bytes, in.slab)

	old := in.region
	in.region = r
	in.slab = r.Bytes
	in.size = newSize

	return old.Recycle()
}

// Close releases the slab and dedup index.
func (in *Interner) Close() error {
	if err := in.dedup.Close(); err != nil {
		return err
	}
	return in.region.Recycle()
}
