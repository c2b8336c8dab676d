// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"strconv"
	"time"

	"periph.io/x/periph/conn"
)

// AddressModifier selects the address space and access mode of a bus cycle.
//
// It is orthogonal to the address itself.
type AddressModifier uint8

// Common VME address modifiers.
const (
	A32UserMBLT    AddressModifier = 0x08
	A32UserData    AddressModifier = 0x09
	A32UserProgram AddressModifier = 0x0a
	A32UserBlock   AddressModifier = 0x0b
	A32SuperMBLT   AddressModifier = 0x0c
	A32SuperData   AddressModifier = 0x0d
	A32SuperProg   AddressModifier = 0x0e
	A32SuperBlock  AddressModifier = 0x0f
	A16User        AddressModifier = 0x29
	A16Super       AddressModifier = 0x2d
	CRCSR          AddressModifier = 0x2f
	A24UserMBLT    AddressModifier = 0x38
	A24UserData    AddressModifier = 0x39
	A24UserProgram AddressModifier = 0x3a
	A24UserBlock   AddressModifier = 0x3b
	A24SuperMBLT   AddressModifier = 0x3c
	A24SuperData   AddressModifier = 0x3d
	A24SuperProg   AddressModifier = 0x3e
	A24SuperBlock  AddressModifier = 0x3f
)

var amNames = map[AddressModifier]string{
	A32UserMBLT:    "A32UserMBLT",
	A32UserData:    "A32UserData",
	A32UserProgram: "A32UserProgram",
	A32UserBlock:   "A32UserBlock",
	A32SuperMBLT:   "A32SuperMBLT",
	A32SuperData:   "A32SuperData",
	A32SuperProg:   "A32SuperProg",
	A32SuperBlock:  "A32SuperBlock",
	A16User:        "A16User",
	A16Super:       "A16Super",
	CRCSR:          "CRCSR",
	A24UserMBLT:    "A24UserMBLT",
	A24UserData:    "A24UserData",
	A24UserProgram: "A24UserProgram",
	A24UserBlock:   "A24UserBlock",
	A24SuperMBLT:   "A24SuperMBLT",
	A24SuperData:   "A24SuperData",
	A24SuperProg:   "A24SuperProg",
	A24SuperBlock:  "A24SuperBlock",
}

func (a AddressModifier) String() string {
	if s, ok := amNames[a]; ok {
		return s
	}
	return "am(0x" + strconv.FormatUint(uint64(a), 16) + ")"
}

// Width is the width of a single data cycle.
type Width uint8

// Supported transfer widths.
const (
	D8  Width = 1
	D16 Width = 2
	D32 Width = 4
	D64 Width = 8
)

// Bytes returns the number of bytes moved per cycle.
func (w Width) Bytes() int {
	return int(w)
}

// Valid returns true if w is one of D8, D16, D32 or D64.
func (w Width) Valid() bool {
	switch w {
	case D8, D16, D32, D64:
		return true
	}
	return false
}

func (w Width) String() string {
	switch w {
	case D8:
		return "D8"
	case D16:
		return "D16"
	case D32:
		return "D32"
	case D64:
		return "D64"
	default:
		return "Width(" + strconv.Itoa(int(w)) + ")"
	}
}

// Interface is one physical bus adapter unit, a crate controller.
//
// It is created by a busreg.Creator and owned by the subsystem slot that
// installs it.
type Interface interface {
	conn.Resource

	// Close releases the adapter. It is called by the owner of the interface
	// when it is destroyed.
	Close() error

	// CanMap returns true if CreateAddressRange can succeed.
	CanMap() bool
	// HasListProcessor returns true if CreateList returns a hardware list.
	HasListProcessor() bool
	// HasBlockTransfer returns true if CreateDmaTransfer can succeed.
	HasBlockTransfer() bool

	// OnLock is called once each time the subsystem acquires the bus lock.
	//
	// It can be used for backend specific arbitration.
	OnLock() error
	// OnUnlock is called once each time the subsystem releases the bus lock.
	OnUnlock() error

	// DeviceType returns the type tag the adapter was created with.
	DeviceType() string
	// DeviceHandle returns the backend native handle, if any.
	DeviceHandle() interface{}

	// CreateAddressRange returns a window of length bytes at base.
	CreateAddressRange(am AddressModifier, base, length uint32) (AddressRange, error)
	// CreatePio returns a single shot accessor.
	CreatePio() (Pio, error)
	// CreateList returns a new empty command list.
	//
	// It returns ErrNotSupported when the adapter has no list processor; the
	// caller must then simulate it, see ListFor().
	CreateList() (List, error)
	// CreateDmaTransfer returns a block transfer of length bytes at base.
	CreateDmaTransfer(am AddressModifier, w Width, base, length uint32) (DmaTransfer, error)
}

// AddressRange is a bounded, modifier tagged window onto bus address space.
//
// Offsets are expressed in units of the access width. An access where
// offset*width >= Length() fails with a *RangeError before the bus is
// touched.
type AddressRange interface {
	Base() uint32
	Length() uint32
	Modifier() AddressModifier

	Peek8(offset uint32) (uint8, error)
	Peek16(offset uint32) (uint16, error)
	Peek32(offset uint32) (uint32, error)
	Poke8(offset uint32, v uint8) error
	Poke16(offset uint32, v uint16) error
	Poke32(offset uint32, v uint32) error

	// Bytes returns the raw window for bulk copies.
	//
	// There is no bounds checking nor byte swapping; the caller is
	// responsible for the accesses done through it.
	Bytes() []byte

	// Close releases the underlying mapping.
	Close() error
}

// Pio is single shot, unmapped access at any address and modifier.
type Pio interface {
	Read8(am AddressModifier, addr uint32) (uint8, error)
	Read16(am AddressModifier, addr uint32) (uint16, error)
	Read32(am AddressModifier, addr uint32) (uint32, error)
	Write8(am AddressModifier, addr uint32, v uint8) error
	Write16(am AddressModifier, addr uint32, v uint16) error
	Write32(am AddressModifier, addr uint32, v uint32) error
}

// DmaTransfer is a described block transfer.
//
// Read and Write move exactly Desc().Length bytes unless the backend cannot,
// in which case the count returned is lower. Use CheckTransfer to turn that
// into an error. There is no automatic retry.
type DmaTransfer interface {
	Desc() Transfer
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// List is a command list.
//
// Operations are queued then executed in order by Execute. The values read
// are returned in list order, a block read contributing count values.
type List interface {
	AddWrite(am AddressModifier, addr uint32, w Width, v uint32)
	AddRead(am AddressModifier, addr uint32, w Width)
	AddBlockRead(am AddressModifier, addr uint32, w Width, count int)
	AddDelay(d time.Duration)
	Len() int
	Reset()
	Execute() ([]uint32, error)
}
