// Package mmapfile opens a capture file as a single read-only byte slice,
// either by memory-mapping it or by reading it fully into memory, so the
// rest of the toolkit can work over one contiguous buffer regardless of
// which backing was used.
package mmapfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Backing selects how a file's bytes are brought into the address space.
type Backing int

const (
	// Mmap maps the file read-only with MAP_SHARED, letting the OS page
	// it in on demand instead of copying the whole file up front.
	Mmap Backing = iota
	// ReadAll reads the entire file into a heap-allocated slice.
	ReadAll
)

// File is an open capture file. Bytes() is valid until Close is called.
type File struct {
	backing Backing
	f       *os.File
	data    []byte
}

// Open opens path using the requested backing.
func Open(path string, backing Backing) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if backing == ReadAll {
		data, err := os.ReadFile(path)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return &File{backing: ReadAll, data: data}, nil
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		f.Close()
		return &File{backing: Mmap, data: nil}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &File{backing: Mmap, f: f, data: data}, nil
}

// Bytes returns the file's contents. The slice must not be retained past
// Close.
func (f *File) Bytes() []byte { return f.data }

// Close releases the mapping (or backing slice) and the underlying file
// descriptor.
func (f *File) Close() error {
	if f.backing == Mmap && f.data != nil {
		if err := unix.Munmap(f.data); err != nil {
			return fmt.Errorf("munmap: %w", err)
		}
	}
	f.data = nil
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}
