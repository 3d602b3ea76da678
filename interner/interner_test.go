package interner

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "interner")
	assert.Nil(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestInternAndLookupRoundTrip(t *testing.T) {
	in, err := Open(tempDir(t), "strings")
	assert.Nil(t, err)
	defer in.Close()

	h, err := in.Intern([]byte("hello world"))
	assert.Nil(t, err)

	got, err := in.Lookup(h)
	assert.Nil(t, err)
	assert.Equal(t, []byte("hello world"), got)
}

func TestInternDedupsIdenticalPayloads(t *testing.T) {
	in, err := Open(tempDir(t), "dedup")
	assert.Nil(t, err)
	defer in.Close()

	h1, err := in.Intern([]byte("same"))
	assert.Nil(t, err)
	h2, err := in.Intern([]byte("same"))
	assert.Nil(t, err)

	assert.Equal(t, h1, h2)
}

func TestInternDistinctPayloadsGetDistinctHandles(t *testing.T) {
	in, err := Open(tempDir(t), "distinct")
	assert.Nil(t, err)
	defer in.Close()

	h1, _ := in.Intern([]byte("alpha"))
	h2, _ := in.Intern([]byte("beta"))
	assert.NotEqual(t, h1, h2)

	a, _ := in.Lookup(h1)
	b, _ := in.Lookup(h2)
	assert.Equal(t, []byte("alpha"), a)
	assert.Equal(t, []byte("beta"), b)
}

// TestInternSurvivesGrow interns enough distinct payloads to force the
// slab past its initial size at least once, then re-reads an early
// handle: grow used to repoint the slab at a fresh, zero-filled region
// without copying the old bytes across, silently losing everything
// interned before the first grow.
func TestInternSurvivesGrow(t *testing.T) {
	in, err := Open(tempDir(t), "grow")
	assert.Nil(t, err)
	defer in.Close()

	payload := bytes.Repeat([]byte("x"), 4096)
	first, err := in.Intern(append(payload, []byte("-0")...))
	assert.Nil(t, err)

	// initialSlabSize is 4 MiB; a few thousand 4 KiB payloads guarantees
	// at least one grow.
	const n = 2000
	handles := make([]Handle, n)
	for i := 0; i < n; i++ {
		h, err := in.Intern(append(payload, []byte(fmt.Sprintf("-%d", i+1))...))
		assert.Nil(t, err)
		handles[i] = h
	}

	got, err := in.Lookup(first)
	assert.Nil(t, err)
	assert.Equal(t, append(payload, []byte("-0")...), got)

	last, err := in.Lookup(handles[n-1])
	assert.Nil(t, err)
	assert.Equal(t, append(payload, []byte(fmt.Sprintf("-%d", n))...), last)
}
