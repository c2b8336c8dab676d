// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package devmem implements a bus interface for bridges exposing the crate
// as physical memory windows, like PCI to VME bridges with their outbound
// windows already programmed.
//
// Each window maps a span of one address space onto physical memory. The
// memory is mapped through /dev/mem so the process needs to be root.
//
// Description line:
//
//  devmem window=<am>:<busbase>:<physaddr>:<size> [window=...]
//
// For example an A24 window of 16MiB at physical address 0xd0000000:
//
//  devmem window=0x39:0:0xd0000000:0x1000000
package devmem

import (
	"encoding/binary"
	"errors"
	"strconv"
	"sync"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
	"periph.io/x/crate/conn/bus/desc"
	"periph.io/x/periph"
	"periph.io/x/periph/host/pmem"
)

// Type is the type tag of this interface.
const Type = "devmem"

// Window is one outbound window of the bridge.
type Window struct {
	Modifier bus.AddressModifier
	BusBase  uint32
	Phys     uint64
	Size     uint32
}

func (w *Window) contains(am bus.AddressModifier, addr uint32, n uint64) bool {
	return w.Modifier == am && addr >= w.BusBase && uint64(addr)+n <= uint64(w.BusBase)+uint64(w.Size)
}

// Dev is a bridge seen through physical memory.
type Dev struct {
	bus.Base

	mu      sync.Mutex
	windows []Window
	// pio holds the lazily mapped windows used by single shot accesses.
	pio []*bus.Window
}

// New returns a Dev. No memory is mapped until it is accessed.
func New(windows []Window) (*Dev, error) {
	if len(windows) == 0 {
		return nil, errors.New("devmem: at least one window is required")
	}
	for i := range windows {
		w := &windows[i]
		if w.Size == 0 {
			return nil, errors.New("devmem: empty window at 0x" + strconv.FormatUint(uint64(w.BusBase), 16))
		}
		if uint64(w.BusBase)+uint64(w.Size) > 1<<32 {
			return nil, errors.New("devmem: window at 0x" + strconv.FormatUint(uint64(w.BusBase), 16) + " wraps around the address space")
		}
	}
	d := &Dev{
		Base:    bus.Base{Type: Type},
		windows: append([]Window(nil), windows...),
		pio:     make([]*bus.Window, len(windows)),
	}
	return d, nil
}

func (d *Dev) String() string {
	return Type + "(" + strconv.Itoa(len(d.windows)) + " windows)"
}

// Windows returns the configured windows.
func (d *Dev) Windows() []Window {
	return append([]Window(nil), d.windows...)
}

// Close implements bus.Interface.
//
// It unmaps the memory mapped for single shot accesses. Ranges returned by
// CreateAddressRange must be closed by their user.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	for i, w := range d.pio {
		if w == nil {
			continue
		}
		if err1 := w.Close(); err == nil {
			err = err1
		}
		d.pio[i] = nil
	}
	return err
}

// CanMap implements bus.Interface.
func (d *Dev) CanMap() bool {
	return true
}

// DeviceHandle implements bus.Interface.
//
// It returns a copy of the windows.
func (d *Dev) DeviceHandle() interface{} {
	return d.Windows()
}

// CreateAddressRange implements bus.Interface.
func (d *Dev) CreateAddressRange(am bus.AddressModifier, base, length uint32) (bus.AddressRange, error) {
	w := d.find(am, base, uint64(length))
	if w == nil {
		return nil, noWindow("map", am, base)
	}
	return mapWindow(am, base, w.Phys+uint64(base-w.BusBase), length)
}

// CreatePio implements bus.Interface.
func (d *Dev) CreatePio() (bus.Pio, error) {
	return &pio{d: d}, nil
}

func (d *Dev) find(am bus.AddressModifier, addr uint32, n uint64) *Window {
	for i := range d.windows {
		if d.windows[i].contains(am, addr, n) {
			return &d.windows[i]
		}
	}
	return nil
}

// span returns the mapped bytes at addr for an access of width w.
func (d *Dev) span(op string, am bus.AddressModifier, addr uint32, w bus.Width) ([]byte, error) {
	if w != bus.D8 && w != bus.D16 && w != bus.D32 {
		return nil, errors.New("devmem: single shot access doesn't support " + w.String())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.windows {
		win := &d.windows[i]
		if !win.contains(am, addr, uint64(w)) {
			continue
		}
		if d.pio[i] == nil {
			m, err := mapWindow(win.Modifier, win.BusBase, win.Phys, win.Size)
			if err != nil {
				return nil, err
			}
			d.pio[i] = m
		}
		off := addr - win.BusBase
		return d.pio[i].Bytes()[off : off+uint32(w)], nil
	}
	return nil, noWindow(op, am, addr)
}

func noWindow(op string, am bus.AddressModifier, addr uint32) error {
	return &bus.Error{Op: "devmem: " + op, Reason: "no window at " + am.String() + ":0x" + strconv.FormatUint(uint64(addr), 16)}
}

// mapping is the subset of *pmem.View used.
type mapping interface {
	Bytes() []byte
	Close() error
}

type view struct {
	*pmem.View
}

func (v view) Bytes() []byte {
	return v.Slice
}

// mapPhys is replaced in tests.
var mapPhys = func(phys uint64, size int) (mapping, error) {
	v, err := pmem.Map(phys, size)
	if err != nil {
		return nil, err
	}
	return view{v}, nil
}

func mapWindow(am bus.AddressModifier, base uint32, phys uint64, length uint32) (*bus.Window, error) {
	m, err := mapPhys(phys, int(length))
	if err != nil {
		return nil, &bus.Error{Op: "devmem: map", Reason: "mapping 0x" + strconv.FormatUint(phys, 16) + " failed", Err: err}
	}
	b := m.Bytes()
	if len(b) < int(length) {
		_ = m.Close()
		return nil, errors.New("devmem: short mapping of 0x" + strconv.FormatUint(phys, 16))
	}
	w, err := bus.NewWindow(am, base, b[:length:length], nil, m.Close)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return w, nil
}

// pio implements bus.Pio.
type pio struct {
	d *Dev
}

func (p *pio) Read8(am bus.AddressModifier, addr uint32) (uint8, error) {
	b, err := p.d.span("read", am, addr, bus.D8)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *pio) Read16(am bus.AddressModifier, addr uint32) (uint16, error) {
	b, err := p.d.span("read", am, addr, bus.D16)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (p *pio) Read32(am bus.AddressModifier, addr uint32) (uint32, error) {
	b, err := p.d.span("read", am, addr, bus.D32)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (p *pio) Write8(am bus.AddressModifier, addr uint32, v uint8) error {
	b, err := p.d.span("write", am, addr, bus.D8)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (p *pio) Write16(am bus.AddressModifier, addr uint32, v uint16) error {
	b, err := p.d.span("write", am, addr, bus.D16)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

func (p *pio) Write32(am bus.AddressModifier, addr uint32, v uint32) error {
	b, err := p.d.span("write", am, addr, bus.D32)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

//

// Creator creates Dev from a description line configuration.
var Creator = busreg.CreatorFunc(func(typ, configuration string) (bus.Interface, error) {
	windows, err := parse(configuration)
	if err != nil {
		return nil, err
	}
	d, err := New(windows)
	if err != nil {
		return nil, err
	}
	return d, nil
})

func parse(configuration string) ([]Window, error) {
	values, args, err := desc.Values(configuration)
	if err != nil {
		return nil, err
	}
	if len(args) != 0 {
		return nil, errors.New("devmem: unexpected argument " + strconv.Quote(args[0]))
	}
	var out []Window
	for k, v := range values {
		if k != "window" {
			return nil, errors.New("devmem: unknown option " + strconv.Quote(k))
		}
		for _, s := range v {
			w, err := parseWindow(s)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
	}
	return out, nil
}

func parseWindow(s string) (Window, error) {
	f, err := desc.Fields(s, 4)
	if err != nil {
		return Window{}, err
	}
	am, err := desc.ParseUint(f[0], 8)
	if err != nil {
		return Window{}, err
	}
	base, err := desc.ParseUint(f[1], 32)
	if err != nil {
		return Window{}, err
	}
	phys, err := desc.ParseUint(f[2], 64)
	if err != nil {
		return Window{}, err
	}
	size, err := desc.ParseUint(f[3], 32)
	if err != nil {
		return Window{}, err
	}
	return Window{Modifier: bus.AddressModifier(am), BusBase: uint32(base), Phys: phys, Size: uint32(size)}, nil
}

// driver implements periph.Driver.
type driver struct {
}

func (d *driver) String() string {
	return "crate-devmem"
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
