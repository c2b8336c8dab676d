// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build unix && !(linux && (amd64 || arm64))

package subsystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

func systemIPC() ipc {
	return flockIPC{dir: os.TempDir()}
}

// flockIPC implements ipc with flock(2) on a lock file named after the key.
//
// The file is the semaphore; the kernel releases the lock when the holder
// dies.
type flockIPC struct {
	dir string
}

func (f flockIPC) path(key uint32) string {
	return filepath.Join(f.dir, "crate-"+strconv.FormatUint(uint64(key), 16)+".lock")
}

func (f flockIPC) lookup(key uint32) (semaphore, error) {
	fd, err := os.OpenFile(f.path(key), os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errNotExist
		}
		return nil, ioErr("open", err)
	}
	return &flockSem{f: fd}, nil
}

func (f flockIPC) createExclusive(key uint32) (semaphore, error) {
	fd, err := os.OpenFile(f.path(key), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, errExist
		}
		return nil, ioErr("create", err)
	}
	// An unlocked file is a semaphore at 1, there is nothing to initialize.
	return &flockSem{f: fd}, nil
}

type flockSem struct {
	f *os.File
}

func (s *flockSem) wait() error {
	return s.flock(unix.LOCK_EX)
}

func (s *flockSem) post() error {
	return s.flock(unix.LOCK_UN)
}

func (s *flockSem) flock(how int) error {
	for {
		err := unix.Flock(int(s.f.Fd()), how)
		if err == nil {
			return nil
		}
		if err != unix.EINTR {
			return ioErr("flock", err)
		}
	}
}
