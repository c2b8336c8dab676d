// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sim implements a simulated crate backed by process memory.
//
// The crate contains memory regions, each answering one address modifier.
// An access that doesn't fall entirely in a region gets a bus error, as a
// real crate would with no module answering at that address.
//
// Description line:
//
//  sim mem=<am>:<base>:<size> [mem=...] [lists=on|off] [dma=on|off]
//
// For example a 64KiB A24 module at 0x100000 and a 4KiB A32 module at
// 0x10000000:
//
//  sim mem=0x39:0x100000:0x10000 mem=0x09:0x10000000:0x1000
//
// Block transfers use the region of the data modifier matching their address
// space, so A24UserBlock reaches A24UserData regions.
package sim

import (
	"encoding/binary"
	"errors"
	"strconv"
	"sync"
	"time"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
	"periph.io/x/crate/conn/bus/desc"
	"periph.io/x/periph"
)

// Type is the type tag of this interface.
const Type = "sim"

// BusError is the bus.Error Code reported when no region answers.
const BusError = 1

// Region describes one simulated module.
type Region struct {
	Modifier bus.AddressModifier
	Base     uint32
	Size     uint32
}

// Opts is the configuration of a Dev.
type Opts struct {
	Regions []Region
	// Lists enables the list processor.
	Lists bool
	// DMA enables block transfers.
	DMA bool
}

// Stats counts the operations done on a Dev.
type Stats struct {
	Locks   int
	Unlocks int
	Reads   int
	Writes  int
	// Delay is the sum of the delays executed by lists. They are not slept.
	Delay time.Duration
}

// Dev is a simulated crate.
type Dev struct {
	bus.Base

	mu      sync.Mutex
	opts    Opts
	regions []*region
	stats   Stats
}

type region struct {
	Region
	mem []byte
}

// New returns a simulated crate with zeroed regions.
func New(opts *Opts) (*Dev, error) {
	d := &Dev{Base: bus.Base{Type: Type}, opts: *opts}
	for _, r := range opts.Regions {
		if r.Size == 0 {
			return nil, errors.New("sim: empty region at 0x" + strconv.FormatUint(uint64(r.Base), 16))
		}
		if uint64(r.Base)+uint64(r.Size) > 1<<32 {
			return nil, errors.New("sim: region at 0x" + strconv.FormatUint(uint64(r.Base), 16) + " wraps around the address space")
		}
		for _, o := range d.regions {
			if o.Modifier == r.Modifier && r.Base < o.Base+o.Size && o.Base < r.Base+r.Size {
				return nil, errors.New("sim: overlapping regions at 0x" + strconv.FormatUint(uint64(r.Base), 16))
			}
		}
		d.regions = append(d.regions, &region{Region: r, mem: make([]byte, r.Size)})
	}
	return d, nil
}

func (d *Dev) String() string {
	return Type + "(" + strconv.Itoa(len(d.regions)) + " regions)"
}

// Stats returns the operation counters.
func (d *Dev) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// CanMap implements bus.Interface.
func (d *Dev) CanMap() bool {
	return true
}

// HasListProcessor implements bus.Interface.
func (d *Dev) HasListProcessor() bool {
	return d.opts.Lists
}

// HasBlockTransfer implements bus.Interface.
func (d *Dev) HasBlockTransfer() bool {
	return d.opts.DMA
}

// OnLock implements bus.Interface.
func (d *Dev) OnLock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Locks++
	return nil
}

// OnUnlock implements bus.Interface.
func (d *Dev) OnUnlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Unlocks++
	return nil
}

// DeviceHandle implements bus.Interface.
//
// It returns the Dev itself.
func (d *Dev) DeviceHandle() interface{} {
	return d
}

// CreateAddressRange implements bus.Interface.
//
// The window aliases the region memory.
func (d *Dev) CreateAddressRange(am bus.AddressModifier, base, length uint32) (bus.AddressRange, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, off, err := d.find("map", am, base, uint64(length))
	if err != nil {
		return nil, err
	}
	return bus.NewWindow(am, base, r.mem[off:off+length:off+length], nil, nil)
}

// CreatePio implements bus.Interface.
func (d *Dev) CreatePio() (bus.Pio, error) {
	return &pio{d: d}, nil
}

// CreateList implements bus.Interface.
func (d *Dev) CreateList() (bus.List, error) {
	if !d.opts.Lists {
		return nil, bus.ErrNotSupported
	}
	return &list{d: d}, nil
}

// CreateDmaTransfer implements bus.Interface.
func (d *Dev) CreateDmaTransfer(am bus.AddressModifier, w bus.Width, base, length uint32) (bus.DmaTransfer, error) {
	if !d.opts.DMA {
		return nil, bus.ErrNotSupported
	}
	t := bus.Transfer{Modifier: am, Width: w, Base: base, Length: length}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &dma{d: d, t: t}, nil
}

// find returns the region of modifier am holding [addr, addr+n) and the
// offset of addr in it.
//
// Must be called with mu held.
func (d *Dev) find(op string, am bus.AddressModifier, addr uint32, n uint64) (*region, uint32, error) {
	for _, r := range d.regions {
		if r.Modifier == am && addr >= r.Base && uint64(addr)+n <= uint64(r.Base)+uint64(r.Size) {
			return r, addr - r.Base, nil
		}
	}
	return nil, 0, berr(op, am, addr)
}

// read must be called with mu held.
func (d *Dev) read(am bus.AddressModifier, addr uint32, w bus.Width) (uint32, error) {
	r, off, err := d.find("read", am, addr, uint64(w))
	if err != nil {
		return 0, err
	}
	d.stats.Reads++
	switch w {
	case bus.D8:
		return uint32(r.mem[off]), nil
	case bus.D16:
		return uint32(binary.BigEndian.Uint16(r.mem[off:])), nil
	case bus.D32:
		return binary.BigEndian.Uint32(r.mem[off:]), nil
	default:
		return 0, errors.New("sim: single shot access doesn't support " + w.String())
	}
}

// write must be called with mu held.
func (d *Dev) write(am bus.AddressModifier, addr uint32, w bus.Width, v uint32) error {
	r, off, err := d.find("write", am, addr, uint64(w))
	if err != nil {
		return err
	}
	d.stats.Writes++
	switch w {
	case bus.D8:
		r.mem[off] = uint8(v)
	case bus.D16:
		binary.BigEndian.PutUint16(r.mem[off:], uint16(v))
	case bus.D32:
		binary.BigEndian.PutUint32(r.mem[off:], v)
	default:
		return errors.New("sim: single shot access doesn't support " + w.String())
	}
	return nil
}

func berr(op string, am bus.AddressModifier, addr uint32) error {
	return &bus.Error{Op: "sim: " + op, Code: BusError, Reason: "bus error at " + am.String() + ":0x" + strconv.FormatUint(uint64(addr), 16)}
}

// dataModifier returns the single cycle modifier of the address space of a
// block transfer modifier.
func dataModifier(am bus.AddressModifier) bus.AddressModifier {
	switch am {
	case bus.A32UserBlock, bus.A32UserMBLT:
		return bus.A32UserData
	case bus.A32SuperBlock, bus.A32SuperMBLT:
		return bus.A32SuperData
	case bus.A24UserBlock, bus.A24UserMBLT:
		return bus.A24UserData
	case bus.A24SuperBlock, bus.A24SuperMBLT:
		return bus.A24SuperData
	}
	return am
}

//

// Creator creates Dev from a description line configuration.
var Creator = busreg.CreatorFunc(func(typ, configuration string) (bus.Interface, error) {
	opts, err := parse(configuration)
	if err != nil {
		return nil, err
	}
	d, err := New(opts)
	if err != nil {
		return nil, err
	}
	return d, nil
})

func parse(configuration string) (*Opts, error) {
	values, args, err := desc.Values(configuration)
	if err != nil {
		return nil, err
	}
	if len(args) != 0 {
		return nil, errors.New("sim: unexpected argument " + strconv.Quote(args[0]))
	}
	opts := &Opts{Lists: true, DMA: true}
	for k, v := range values {
		switch k {
		case "mem":
			for _, s := range v {
				r, err := parseRegion(s)
				if err != nil {
					return nil, err
				}
				opts.Regions = append(opts.Regions, r)
			}
		case "lists", "dma":
			if len(v) != 1 {
				return nil, errors.New("sim: " + k + " specified twice")
			}
			b, err := desc.ParseBool(v[0])
			if err != nil {
				return nil, err
			}
			if k == "lists" {
				opts.Lists = b
			} else {
				opts.DMA = b
			}
		default:
			return nil, errors.New("sim: unknown option " + strconv.Quote(k))
		}
	}
	if len(opts.Regions) == 0 {
		return nil, errors.New("sim: at least one mem= is required")
	}
	return opts, nil
}

func parseRegion(s string) (Region, error) {
	f, err := desc.Fields(s, 3)
	if err != nil {
		return Region{}, err
	}
	am, err := desc.ParseUint(f[0], 8)
	if err != nil {
		return Region{}, err
	}
	base, err := desc.ParseUint(f[1], 32)
	if err != nil {
		return Region{}, err
	}
	size, err := desc.ParseUint(f[2], 32)
	if err != nil {
		return Region{}, err
	}
	return Region{Modifier: bus.AddressModifier(am), Base: uint32(base), Size: uint32(size)}, nil
}

// driver implements periph.Driver.
type driver struct {
}

func (d *driver) String() string {
	return "crate-sim"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

func (d *driver) Init() (bool, error) {
	return true, busreg.Register(Type, Creator)
}

func init() {
	periph.MustRegister(&driver{})
}

var _ bus.Interface = &Dev{}
var _ periph.Driver = &driver{}
