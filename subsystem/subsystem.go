// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package subsystem is the registry of installed bus interfaces.
//
// Each installed interface is a crate; its crate number is its index in the
// registry. Crate numbers are dense, assigned in installation order starting
// at 0 and never reassigned, except by Replace.
//
// The Subsystem also serializes the physical bus between cooperating
// processes, see Lock().
//
// A Subsystem is not safe for concurrent mutation. It assumes a single owning
// goroutine installs and replaces interfaces; add your own mutual exclusion
// otherwise.
package subsystem

import (
	"errors"
	"strconv"
	"time"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
)

// Ownership states whether a Subsystem slot closes its interface.
type Ownership int

const (
	// Borrowed interfaces are never closed by the Subsystem.
	Borrowed Ownership = iota
	// Owned interfaces are closed when replaced or on DestroyAll.
	Owned
)

func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "Borrowed"
	case Owned:
		return "Owned"
	default:
		return "Ownership(" + strconv.Itoa(int(o)) + ")"
	}
}

// Option configures a Subsystem.
type Option func(s *Subsystem)

// WithKey sets the key identifying the bus lock. It defaults to DefaultKey.
//
// All the processes sharing a bus must use the same key.
func WithKey(key uint32) Option {
	return func(s *Subsystem) {
		s.key = key
	}
}

// Subsystem is the crate registry.
type Subsystem struct {
	f     *busreg.Factory
	slots []slot

	// Bus lock.
	key    uint32
	ipc    ipc
	pause  func()
	sem    semaphore
	locked bool
}

type slot struct {
	own   Ownership
	iface bus.Interface
}

// New returns an empty Subsystem creating interfaces with f.
//
// f defaults to busreg.Default() when nil.
func New(f *busreg.Factory, opts ...Option) *Subsystem {
	if f == nil {
		f = busreg.Default()
	}
	s := &Subsystem{
		f:     f,
		key:   DefaultKey,
		ipc:   systemIPC(),
		pause: func() { time.Sleep(createPause) },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Factory returns the factory used by ProcessDescription.
func (s *Subsystem) Factory() *busreg.Factory {
	return s.f
}

// Len returns the number of installed interfaces.
func (s *Subsystem) Len() int {
	return len(s.slots)
}

// Install appends i and returns its crate number.
//
// i must not be nil; Install panics otherwise.
func (s *Subsystem) Install(i bus.Interface, own Ownership) int {
	if i == nil {
		panic("subsystem: Install(nil)")
	}
	s.slots = append(s.slots, slot{own: own, iface: i})
	return len(s.slots) - 1
}

// Replace installs i at crate number index.
//
// If the previous interface was Owned, it is closed before i is installed and
// nil is returned along the close error, if any. If it was Borrowed, it is
// returned as-is and stays usable by the caller.
//
// A nil i is refused and the slot is left untouched.
func (s *Subsystem) Replace(index int, i bus.Interface, own Ownership) (bus.Interface, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	if i == nil {
		return nil, errors.New("subsystem: can't replace crate " + strconv.Itoa(index) + " with nil")
	}
	prev := s.slots[index]
	var err error
	if prev.own == Owned {
		err = prev.iface.Close()
		prev.iface = nil
	}
	s.slots[index] = slot{own: own, iface: i}
	return prev.iface, err
}

// Interface returns the interface at crate number index.
func (s *Subsystem) Interface(index int) (bus.Interface, error) {
	if err := s.check(index); err != nil {
		return nil, err
	}
	return s.slots[index].iface, nil
}

// Ownership returns the ownership of the slot at crate number index.
func (s *Subsystem) Ownership(index int) (Ownership, error) {
	if err := s.check(index); err != nil {
		return Borrowed, err
	}
	return s.slots[index].own, nil
}

// All returns the installed interfaces, in crate number order.
func (s *Subsystem) All() []bus.Interface {
	out := make([]bus.Interface, len(s.slots))
	for i := range s.slots {
		out[i] = s.slots[i].iface
	}
	return out
}

// DestroyAll empties the registry.
//
// Slots are popped from the back and only Owned interfaces are closed. The
// registry is emptied even if closing fails; the first error is returned.
func (s *Subsystem) DestroyAll() error {
	var err error
	for len(s.slots) != 0 {
		n := len(s.slots) - 1
		sl := s.slots[n]
		s.slots[n] = slot{}
		s.slots = s.slots[:n]
		if sl.own == Owned {
			if err1 := sl.iface.Close(); err == nil {
				err = err1
			}
		}
	}
	s.slots = nil
	return err
}

func (s *Subsystem) check(index int) error {
	if index < 0 || index >= len(s.slots) {
		v := uint64(index)
		if index < 0 {
			// Report negative indexes as the largest value rather than wrapping.
			v = ^uint64(0)
		}
		return &bus.RangeError{What: "crate", Bound: uint64(len(s.slots)), Value: v}
	}
	return nil
}
