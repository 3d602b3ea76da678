/*
Package pmap implements a persistent, file-backed associative container
using the Robin Hood open-addressing algorithm.

The entire table — header, info bytes, and key/value slots — lives in a
single memory-mapped region, optionally backed by a file under
(dir, name). Multiple goroutines within one process may share a *PMap;
a lightweight internal lock serialises mutation against lookups and
against reclamation of the backing region.

Basic usage:

	m := pmap.New[uint64, uint64]("/tmp/pmap-demo", "nodes")
	defer m.Close()

	m.Set(1, 7)
	v, ok := m.Find(1)

	it := m.Begin()
	defer it.Close()
	for ; it.Valid(); it.Next() {
		k, v := it.Key(), it.Value()
		_ = k
		_ = v
	}

Keys and values must be fixed-size and comparable (no pointers, no
variable-length payloads): the table is a flat array of (K, V) pairs.
Variable-length data — strings, byte blobs — should be interned
elsewhere (see the interner package) into a fixed-size handle and
stored by handle.

Growth invalidates any raw pointer returned by Ref. The read-lock
bracket (Iterator, or an explicit RLock/RUnlock pair) is what makes Ref
safe: while a read-lock is held, no growth can occur because growth
requires the write lock.
*/
package pmap
