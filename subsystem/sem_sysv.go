// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux && (amd64 || arm64)

package subsystem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// System V semaphore operations, see semctl(2) and semop(2).
const (
	semSetVal = 16     // SETVAL
	semUndo   = 0x1000 // SEM_UNDO
)

func systemIPC() ipc {
	return sysvIPC{}
}

// sysvIPC implements ipc with a System V semaphore set of one semaphore.
//
// SEM_UNDO is used on every operation so the kernel gives the bus back if a
// process dies while holding it.
type sysvIPC struct{}

func (sysvIPC) lookup(key uint32) (semaphore, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(int32(key)), 1, 0)
	switch errno {
	case 0:
		return &sysvSem{id: id}, nil
	case unix.ENOENT:
		return nil, errNotExist
	default:
		return nil, ioErr("semget", errno)
	}
}

func (sysvIPC) createExclusive(key uint32) (semaphore, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(int32(key)), 1, unix.IPC_CREAT|unix.IPC_EXCL|0o666)
	switch errno {
	case 0:
	case unix.EEXIST:
		return nil, errExist
	default:
		return nil, ioErr("semget", errno)
	}
	// We won the race, we are the only one initializing the value.
	if _, _, errno := unix.Syscall6(unix.SYS_SEMCTL, id, 0, semSetVal, 1, 0, 0); errno != 0 {
		return nil, ioErr("semctl(SETVAL)", errno)
	}
	return &sysvSem{id: id}, nil
}

// sembuf is struct sembuf.
type sembuf struct {
	num uint16
	op  int16
	flg int16
}

type sysvSem struct {
	id uintptr
}

func (s *sysvSem) wait() error {
	return s.op(-1)
}

func (s *sysvSem) post() error {
	return s.op(1)
}

func (s *sysvSem) op(delta int16) error {
	b := sembuf{num: 0, op: delta, flg: semUndo}
	for {
		_, _, errno := unix.Syscall(unix.SYS_SEMOP, s.id, uintptr(unsafe.Pointer(&b)), 1)
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			// Interrupted by a signal, try again.
		default:
			return ioErr("semop", errno)
		}
	}
}
