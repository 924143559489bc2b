//go:build linux || darwin

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mappedBuffer is a buffer backed by a memory-mapped regular file, used
// for --shared and --persist. It is a thin CLI-only shim: the storage
// core never imports golang.org/x/sys/unix itself (§1's external-
// collaborator boundary — mmap is platform plumbing, not core logic).
type mappedBuffer struct {
	file *os.File
	data []byte
}

// openMapped opens (creating if needed) path, grows it to size if
// smaller, and maps it PROT_READ|PROT_WRITE, MAP_SHARED.
func openMapped(path string, size int) (*mappedBuffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if int(info.Size()) < size {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &mappedBuffer{file: f, data: data}, nil
}

func (m *mappedBuffer) Close(persist bool) error {
	err := unix.Munmap(m.data)
	cerr := m.file.Close()
	if !persist {
		os.Remove(m.file.Name())
	}
	if err != nil {
		return err
	}
	return cerr
}
