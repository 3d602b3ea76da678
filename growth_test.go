package pmap

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReserveGrowsCapacityUpfront(t *testing.T) {
	m := New[uint64, uint64](tempDir(t), "grow1")
	defer m.Close()

	before := m.Capacity()
	m.Reserve(10000)
	assert.Greater(t, m.Capacity(), before)

	for i := uint64(0); i < 5000; i++ {
		m.Set(i, i)
	}
	assert.Equal(t, uint64(5000), m.Size())
}

func TestRehashDeletesSupersededRegionFile(t *testing.T) {
	dir := tempDir(t)
	m := New[uint64, uint64](dir, "grow3")
	defer m.Close()

	oldMask := m.Capacity() - 1
	oldPath := dir + "/grow3-" + itoa(regionSize(oldMask, entrySize[uint64, uint64]()))
	m.Set(1, 1)
	assert.True(t, regionFileExists(t, dir, "grow3", oldMask, entrySize[uint64, uint64]()))

	for i := uint64(0); m.Capacity()-1 == oldMask; i++ {
		m.Set(i, i)
	}

	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "rehash must unlink the superseded region's file, not just unmap it")

	newMask := m.Capacity() - 1
	assert.True(t, regionFileExists(t, dir, "grow3", newMask, entrySize[uint64, uint64]()))
}

func TestCollisionHeavyInsertUnderConstantHasher(t *testing.T) {
	// A constant hasher forces every key into one probe chain. 64 keys
	// keep that chain well under maxDistance, which no rehash can
	// shorten when every key shares one home bucket.
	m := New[uint64, uint64](tempDir(t), "grow2", WithHasher[uint64, uint64](HasherFunc[uint64](func(uint64) uint64 { return 0 })))
	defer m.Close()

	for i := uint64(0); i < 64; i++ {
		m.Set(i, i)
	}
	for i := uint64(0); i < 64; i++ {
		v, ok := m.Find(i)
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
}
