// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package subsystem

import (
	"errors"
	"fmt"
	"strconv"
	"syscall"
	"time"

	"periph.io/x/crate/conn/bus"
)

// DefaultKey identifies the bus lock shared by every cooperating process on
// the host. It spells "VME ".
//
// Changing it breaks mutual exclusion with processes built with the previous
// value.
const DefaultKey uint32 = 0x564d4520

// createPause is the time given to the process that won the creation race to
// initialize the semaphore.
const createPause = 10 * time.Millisecond

// maxCreateAttempts bounds the lookup/create loop in case the semaphore keeps
// being removed behind our back.
const maxCreateAttempts = 100

// Lock acquires the bus lock, blocking until it is available.
//
// The lock is shared by all the processes using the same key on this host. It
// is created on first use. Once acquired, OnLock() is called on every
// installed interface in crate number order.
//
// Lock is not recursive: calling it while the lock is held returns
// bus.ErrLockHeld without touching the semaphore. There is no timeout.
func (s *Subsystem) Lock() error {
	if s.locked {
		return bus.ErrLockHeld
	}
	if s.sem == nil {
		sem, err := openSemaphore(s.ipc, s.key, s.pause)
		if err != nil {
			return err
		}
		s.sem = sem
	}
	if err := s.sem.wait(); err != nil {
		return err
	}
	for i := range s.slots {
		if err := s.slots[i].iface.OnLock(); err != nil {
			// Undo the notifications already done and give the bus back.
			for j := 0; j < i; j++ {
				_ = s.slots[j].iface.OnUnlock()
			}
			if err1 := s.sem.post(); err1 != nil {
				return err1
			}
			return fmt.Errorf("subsystem: crate %d OnLock: %w", i, err)
		}
	}
	s.locked = true
	return nil
}

// Unlock releases the bus lock then calls OnUnlock() on every installed
// interface in crate number order.
//
// It returns bus.ErrNotLocked if the lock isn't held by this Subsystem. All
// the interfaces are notified even if one fails; the first error is returned.
func (s *Subsystem) Unlock() error {
	if !s.locked {
		return bus.ErrNotLocked
	}
	if err := s.sem.post(); err != nil {
		return err
	}
	s.locked = false
	var err error
	for i := range s.slots {
		if err1 := s.slots[i].iface.OnUnlock(); err1 != nil && err == nil {
			err = fmt.Errorf("subsystem: crate %d OnUnlock: %w", i, err1)
		}
	}
	return err
}

// Locked returns true if the bus lock is held by this Subsystem.
func (s *Subsystem) Locked() bool {
	return s.locked
}

// With calls f with the bus lock held.
func (s *Subsystem) With(f func() error) error {
	if err := s.Lock(); err != nil {
		return err
	}
	err := f()
	if err1 := s.Unlock(); err == nil {
		err = err1
	}
	return err
}

//

// semaphore is a binary semaphore shared between processes.
type semaphore interface {
	// wait decrements the semaphore, blocking while it is 0.
	wait() error
	// post increments the semaphore.
	post() error
}

// ipc is the OS primitive the semaphore is built upon.
type ipc interface {
	// lookup opens an existing semaphore. It returns errNotExist when there is
	// none.
	lookup(key uint32) (semaphore, error)
	// createExclusive creates the semaphore and initializes it to 1. It
	// returns errExist when it already exists.
	createExclusive(key uint32) (semaphore, error)
}

var (
	errNotExist = errors.New("subsystem: semaphore doesn't exist")
	errExist    = errors.New("subsystem: semaphore already exists")
)

// openSemaphore returns the semaphore identified by key, creating it if
// needed.
//
// Multiple processes may race to create it. Only the winner of the exclusive
// creation initializes it; the losers pause to let it finish and look it up
// again.
func openSemaphore(p ipc, key uint32, pause func()) (semaphore, error) {
	for i := 0; i < maxCreateAttempts; i++ {
		s, err := p.lookup(key)
		if err == nil {
			return s, nil
		}
		if err != errNotExist {
			return nil, err
		}
		if s, err = p.createExclusive(key); err == nil {
			return s, nil
		}
		if err != errExist {
			return nil, err
		}
		pause()
	}
	return nil, errors.New("subsystem: gave up creating the bus lock 0x" + strconv.FormatUint(uint64(key), 16))
}

// ioErr converts an OS failure into a *bus.Error.
func ioErr(op string, err error) error {
	e := &bus.Error{Op: "subsystem: " + op, Reason: "I/O error", Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Code = int(errno)
	}
	return e
}
