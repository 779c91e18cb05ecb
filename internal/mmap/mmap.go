// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mmap memory-maps a file read-only and exposes it as a plain
// byte slice, so the rest of the package can treat a database file as an
// in-memory buffer with random-access offsets.
package mmap

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"
)

// ReaderAt holds a read-only mapping of an entire file.
type ReaderAt struct {
	f    *os.File
	data []byte
}

// Open maps path read-only for its full length and advises the kernel
// that access will be random, matching how this package's lookups jump
// around the file rather than scanning it.
func Open(path string) (*ReaderAt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap: stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("mmap: %s is empty", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap: mmap %s: %w", path, err)
	}

	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, fmt.Errorf("mmap: madvise %s: %w", path, err)
	}

	if err := unix.Mlock(data); err != nil {
		log.Printf("mmap: failed to mlock %s, continuing anyway: %s", path, err)
	}

	return &ReaderAt{f: f, data: data}, nil
}

// Data returns the full mapped region. Callers must not write through it,
// and must not retain slices of it past Close.
func (r *ReaderAt) Data() []byte {
	return r.data
}

// Len returns the size of the mapped region in bytes.
func (r *ReaderAt) Len() int {
	return len(r.data)
}

// Close unmaps the file and closes its handle. Not reentrant.
func (r *ReaderAt) Close() error {
	err := unix.Munmap(r.data)
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}
