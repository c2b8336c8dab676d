// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"encoding/binary"
	"errors"
	"strconv"
	"sync"
)

// Window is an AddressRange over a mapped byte slice.
//
// Backends that map bus address space in the process create a Window around
// the mapping and pass the function that unmaps it.
type Window struct {
	// Immutable after initialization.
	am      AddressModifier
	base    uint32
	b       []byte
	order   binary.ByteOrder
	release func() error

	mu     sync.Mutex
	closed bool
}

// NewWindow returns a Window of len(b) bytes at base.
//
// order is the byte order used by the Peek/Poke accessors; nil means the bus
// order, big endian. release is called once by Close, it may be nil.
func NewWindow(am AddressModifier, base uint32, b []byte, order binary.ByteOrder, release func() error) (*Window, error) {
	if len(b) == 0 {
		return nil, errors.New("bus: empty window")
	}
	if uint64(len(b)) > 1<<32 {
		return nil, errors.New("bus: window larger than the address space")
	}
	if uint64(base)+uint64(len(b)) > 1<<32 {
		return nil, errors.New("bus: window at 0x" + strconv.FormatUint(uint64(base), 16) + " wraps around the address space")
	}
	if order == nil {
		order = binary.BigEndian
	}
	return &Window{am: am, base: base, b: b, order: order, release: release}, nil
}

func (w *Window) String() string {
	return w.am.String() + "@0x" + strconv.FormatUint(uint64(w.base), 16) + "+0x" + strconv.FormatUint(uint64(len(w.b)), 16)
}

// Base implements AddressRange.
func (w *Window) Base() uint32 {
	return w.base
}

// Length implements AddressRange.
func (w *Window) Length() uint32 {
	return uint32(len(w.b))
}

// Modifier implements AddressRange.
func (w *Window) Modifier() AddressModifier {
	return w.am
}

// Peek8 implements AddressRange.
func (w *Window) Peek8(offset uint32) (uint8, error) {
	if err := checkOffset(offset, D8, w.Length()); err != nil {
		return 0, err
	}
	return w.b[offset], nil
}

// Peek16 implements AddressRange.
func (w *Window) Peek16(offset uint32) (uint16, error) {
	if err := checkOffset(offset, D16, w.Length()); err != nil {
		return 0, err
	}
	o := 2 * offset
	return w.order.Uint16(w.b[o : o+2]), nil
}

// Peek32 implements AddressRange.
func (w *Window) Peek32(offset uint32) (uint32, error) {
	if err := checkOffset(offset, D32, w.Length()); err != nil {
		return 0, err
	}
	o := 4 * offset
	return w.order.Uint32(w.b[o : o+4]), nil
}

// Poke8 implements AddressRange.
func (w *Window) Poke8(offset uint32, v uint8) error {
	if err := checkOffset(offset, D8, w.Length()); err != nil {
		return err
	}
	w.b[offset] = v
	return nil
}

// Poke16 implements AddressRange.
func (w *Window) Poke16(offset uint32, v uint16) error {
	if err := checkOffset(offset, D16, w.Length()); err != nil {
		return err
	}
	o := 2 * offset
	w.order.PutUint16(w.b[o:o+2], v)
	return nil
}

// Poke32 implements AddressRange.
func (w *Window) Poke32(offset uint32, v uint32) error {
	if err := checkOffset(offset, D32, w.Length()); err != nil {
		return err
	}
	o := 4 * offset
	w.order.PutUint32(w.b[o:o+4], v)
	return nil
}

// Bytes implements AddressRange.
func (w *Window) Bytes() []byte {
	return w.b
}

// Close implements AddressRange.
//
// It is safe to call multiple times; the mapping is released once.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.release != nil {
		return w.release()
	}
	return nil
}

var _ AddressRange = &Window{}
