package pmap

import (
	"encoding/binary"
	"unsafe"
)

// Hasher computes a machine-word hash over a fixed-size key. The default
// implementation avalanches low bits well enough for Robin Hood
// displacement to stay small; a caller-supplied Hasher that isn't the
// default triggers bad-hash mitigation in PMap.hashKey.
type Hasher[K comparable] interface {
	Hash(k K) uint64
}

type hasherFunc[K comparable] struct {
	fn func(K) uint64
}

func (h hasherFunc[K]) Hash(k K) uint64 { return h.fn(k) }

// HasherFunc adapts a plain function to the Hasher interface.
func HasherFunc[K comparable](fn func(K) uint64) Hasher[K] {
	return hasherFunc[K]{fn: fn}
}

const (
	murmur3Mul1 = 0xff51afd7ed558ccd
	murmur3Mul2 = 0xc4ceb9fe1a85ec53
	mul32Const  = 0xca4bcaa75ec3f625

	hashBytesSeed = 0xe17a1465
	hashBytesMul  = 0xc6a4a7935bd1e995

	// badHashMultiplier64 is applied to the hash output before it is
	// split into idx/info whenever the configured Hasher isn't the
	// package default, per spec.
	badHashMultiplier64 = 0xb3727c1f779b8d8b
)

// hashUint64 is the Murmur3 finalizer: two multiply-xor-shift rounds.
func hashUint64(v uint64) uint64 {
	h := v
	h ^= h >> 33
	h *= murmur3Mul1
	h ^= h >> 33
	h *= murmur3Mul2
	h ^= h >> 33
	return h
}

// hashUint32 avalanches a 32-bit key via a single wide multiply.
func hashUint32(v uint32) uint64 {
	return (mul32Const * uint64(v)) >> 32
}

// hashBytesRaw is a Murmur2-like byte-block hash, used by DefaultHasher
// for keys that are neither 8 nor 4 bytes wide. Grounded on the teacher's own little-endian
// encode/decode helpers in slab.go, generalized to arbitrary widths.
func hashBytesRaw(data []byte) uint64 {
	const m = uint64(hashBytesMul)
	const seed = uint64(hashBytesSeed)

	length := len(data)
	h := seed ^ (uint64(length) * m)

	n := length / 8
	for i := 0; i < n; i++ {
		k := binary.LittleEndian.Uint64(data[i*8:])
		k *= m
		k ^= k >> 47
		k *= m
		h ^= k
		h *= m
	}

	tail := data[n*8:]
	switch len(tail) {
	case 7:
		h ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		h ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		h ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		h ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		h ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		h ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		h ^= uint64(tail[0])
		h *= m
	}

	h ^= h >> 47
	h *= m
	h ^= h >> 47
	return h
}

// DefaultHasher picks a finalizer by the size of K: 8-byte keys get the
// Murmur3 finalizer, 4-byte keys get the multiply-shift, everything
// else gets the byte-block hash over K's raw memory.
func DefaultHasher[K comparable]() Hasher[K] {
	var zero K
	sz := int(unsafe.Sizeof(zero))

	switch sz {
	case 8:
		return HasherFunc[K](func(k K) uint64 {
			return hashUint64(*(*uint64)(unsafe.Pointer(&k)))
		})
	case 4:
		return HasherFunc[K](func(k K) uint64 {
			return hashUint32(*(*uint32)(unsafe.Pointer(&k)))
		})
	default:
		return HasherFunc[K](func(k K) uint64 {
			return hashBytesRaw(unsafe.Slice((*byte)(unsafe.Pointer(&k)), sz))
		})
	}
}
