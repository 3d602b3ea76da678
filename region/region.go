// Package region manages the memory-mapped files that back a pmap
// table: opening/growing the backing file, mapping it, and applying
// platform advise hints. It plays the MMapGC collaborator role: it
// owns region lifetime, and ReclaimAll asks a caller-supplied callback
// before deleting a region that has been replaced.
package region

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	goerrors "github.com/go-errors/errors"
)

// Region is one mapped file. Bytes is the live mapping; it becomes
// invalid the instant Recycle or DeleteFile runs.
type Region struct {
	Path  string
	File  *os.File
	Bytes mmap.MMap
}

// Manager opens, grows, and recycles the on-disk regions for a table
// rooted at Dir. Grounded on the teacher's openMmapHash/openMmapFile
// pairing in mmap.go, generalized to name files by table identity
// rather than by slot count alone.
type Manager struct {
	Dir string
}

func NewManager(dir string) *Manager {
	return &Manager{Dir: dir}
}

func (m *Manager) pathFor(name string, size int64) string {
	return fmt.Sprintf("%s/%s-%d", m.Dir, name, size)
}

// Exists reports whether the backing file for (name, size) is already
// on disk, without creating or mapping anything. Callers use this to
// decide whether an access can stay lazy (nothing to read yet) or must
// actually map the region.
func (m *Manager) Exists(name string, size int64) bool {
	return fileExists(m.pathFor(name, size))
}

// Remove deletes the backing file for (name, size), if any, without
// mapping it. Used by callers that need to discard a previous
// generation of a region without ever attaching to it.
func (m *Manager) Remove(name string, size int64) error {
	err := os.Remove(m.pathFor(name, size))
	if err != nil && !os.IsNotExist(err) {
		return goerrors.Wrap(err, 1)
	}
	return nil
}

// Open maps the region for (name, size), creating and zero-filling the
// backing file first if it doesn't exist.
func (m *Manager) Open(name string, size int64) (*Region, error) {
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return nil, goerrors.Wrap(err, 1)
	}

	path := m.pathFor(name, size)
	if !fileExists(path) {
		if err := createSparseFile(path, size); err != nil {
			return nil, err
		}
	}

	return m.mapFile(path)
}

func (m *Manager) mapFile(path string) (*Region, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, goerrors.Wrap(fmt.Errorf("open region %s: %w", path, err), 1)
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, goerrors.Wrap(fmt.Errorf("stat region %s: %w", path, err), 1)
	}

	applyFadvise(int(file.Fd()), fi.Size())

	data, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		file.Close()
		return nil, goerrors.Wrap(fmt.Errorf("mmap region %s: %w", path, err), 1)
	}

	applyMadvise(data)

	return &Region{Path: path, File: file, Bytes: data}, nil
}

// Grow maps a fresh, larger region for (name, newSize) without
// touching the old one. The caller is responsible for copying data
// across and eventually calling Recycle on the old region.
func (m *Manager) Grow(name string, newSize int64) (*Region, error) {
	return m.Open(name, newSize)
}

// Recycle unmaps and closes a region without deleting its backing
// file, for when a caller wants to keep old snapshots around.
func (r *Region) Recycle() error {
	if err := r.Bytes.Unmap(); err != nil {
		return goerrors.Wrap(err, 1)
	}
	return r.File.Close()
}

// DeleteFile unmaps, closes, and removes the backing file entirely.
func (r *Region) DeleteFile() error {
	if err := r.Recycle(); err != nil {
		return err
	}
	if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
		return goerrors.Wrap(err, 1)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func createSparseFile(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return goerrors.Wrap(err, 1)
	}
	defer f.Close()

	if _, err := f.Seek(size-1, 0); err != nil {
		return goerrors.Wrap(err, 1)
	}
	if _, err := f.Write([]byte{0}); err != nil {
		return goerrors.Wrap(err, 1)
	}
	return f.Sync()
}
