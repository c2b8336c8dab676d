// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usbvme

import (
	"encoding/binary"
	"errors"
	"io"
	"strconv"
	"sync"

	"periph.io/x/crate/conn/bus"
)

// Type is the type tag of this interface.
const Type = "usbvme"

// Opts selects the bridge to open.
type Opts struct {
	VID uint16
	PID uint16
	// Serial, when not empty, selects the bridge among several with the same
	// VID and PID.
	Serial string
}

func (o *Opts) String() string {
	s := "0x" + strconv.FormatUint(uint64(o.VID), 16) + ":0x" + strconv.FormatUint(uint64(o.PID), 16)
	if o.Serial != "" {
		s += "/" + o.Serial
	}
	return s
}

// conn is the bulk endpoint pair of the bridge.
type conn interface {
	io.ReadWriter
	Close() error
}

// Dev is an open USB bridge.
type Dev struct {
	bus.Base

	opts Opts
	// mu serializes transactions.
	mu sync.Mutex
	c  conn
}

// New opens the bridge selected by opts.
func New(opts *Opts) (*Dev, error) {
	c, err := drv.open(opts)
	if err != nil {
		return nil, err
	}
	return newDev(c, opts), nil
}

func newDev(c conn, opts *Opts) *Dev {
	return &Dev{Base: bus.Base{Type: Type}, opts: *opts, c: c}
}

func (d *Dev) String() string {
	return Type + "(" + d.opts.String() + ")"
}

// Close implements bus.Interface.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c == nil {
		return nil
	}
	err := d.c.Close()
	d.c = nil
	return err
}

// HasListProcessor implements bus.Interface.
func (d *Dev) HasListProcessor() bool {
	return true
}

// HasBlockTransfer implements bus.Interface.
func (d *Dev) HasBlockTransfer() bool {
	return true
}

// DeviceHandle implements bus.Interface.
//
// It returns the underlying USB connection.
func (d *Dev) DeviceHandle() interface{} {
	return d.c
}

// CreatePio implements bus.Interface.
func (d *Dev) CreatePio() (bus.Pio, error) {
	return &pio{d: d}, nil
}

// CreateList implements bus.Interface.
func (d *Dev) CreateList() (bus.List, error) {
	return &list{d: d}, nil
}

// CreateDmaTransfer implements bus.Interface.
func (d *Dev) CreateDmaTransfer(am bus.AddressModifier, w bus.Width, base, length uint32) (bus.DmaTransfer, error) {
	t := bus.Transfer{Modifier: am, Width: w, Base: base, Length: length}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &dma{d: d, t: t}, nil
}

// transact sends one request and returns the response payload.
//
// On a bridge error, the payload received so far is returned along the
// error.
func (d *Dev) transact(op string, req []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.c == nil {
		return nil, errors.New("usbvme: " + op + ": closed")
	}
	if _, err := d.c.Write(req); err != nil {
		return nil, &bus.Error{Op: "usbvme: " + op, Reason: "USB write failed", Err: err}
	}
	buf := make([]byte, respHeaderSize+maxPayload)
	n := 0
	for {
		m, err := d.c.Read(buf[n:])
		n += m
		if n >= respHeaderSize {
			count := int(binary.BigEndian.Uint32(buf[4:]))
			if count > maxPayload {
				return nil, errors.New("usbvme: " + op + ": invalid response length " + strconv.Itoa(count))
			}
			if n >= respHeaderSize+count {
				return buf[respHeaderSize : respHeaderSize+count], toErr(op, int(buf[0]))
			}
		}
		if err != nil {
			return nil, &bus.Error{Op: "usbvme: " + op, Reason: "USB read failed", Err: err}
		}
		if m == 0 {
			return nil, errors.New("usbvme: " + op + ": short response")
		}
	}
}

//

// pio implements bus.Pio with one transaction per access.
type pio struct {
	d *Dev
}

func (p *pio) Read8(am bus.AddressModifier, addr uint32) (uint8, error) {
	v, err := p.read(am, addr, bus.D8)
	return uint8(v), err
}

func (p *pio) Read16(am bus.AddressModifier, addr uint32) (uint16, error) {
	v, err := p.read(am, addr, bus.D16)
	return uint16(v), err
}

func (p *pio) Read32(am bus.AddressModifier, addr uint32) (uint32, error) {
	return p.read(am, addr, bus.D32)
}

func (p *pio) Write8(am bus.AddressModifier, addr uint32, v uint8) error {
	return p.write(am, addr, bus.D8, uint32(v))
}

func (p *pio) Write16(am bus.AddressModifier, addr uint32, v uint16) error {
	return p.write(am, addr, bus.D16, uint32(v))
}

func (p *pio) Write32(am bus.AddressModifier, addr uint32, v uint32) error {
	return p.write(am, addr, bus.D32, v)
}

func (p *pio) read(am bus.AddressModifier, addr uint32, w bus.Width) (uint32, error) {
	b, err := p.d.transact("read", appendRequest(nil, opRead, am, w, addr, uint32(w), nil))
	if err != nil {
		return 0, err
	}
	if len(b) != w.Bytes() {
		return 0, errors.New("usbvme: read: got " + strconv.Itoa(len(b)) + " bytes, expected " + strconv.Itoa(w.Bytes()))
	}
	return decode(b, w), nil
}

func (p *pio) write(am bus.AddressModifier, addr uint32, w bus.Width, v uint32) error {
	_, err := p.d.transact("write", appendRequest(nil, opWrite, am, w, addr, uint32(w), encode(v, w)))
	return err
}

// list implements bus.List with the bridge list processor.
//
// The whole list is sent as a single request.
type list struct {
	bus.Ops
	d *Dev
}

func (l *list) Execute() ([]uint32, error) {
	if err := l.Check(); err != nil {
		return nil, err
	}
	var sub []byte
	for i, op := range l.Queued() {
		switch op.Kind {
		case bus.OpWrite:
			sub = appendRequest(sub, opWrite, op.Modifier, op.Width, op.Addr, uint32(op.Width), encode(op.Value, op.Width))
		case bus.OpRead:
			sub = appendRequest(sub, opRead, op.Modifier, op.Width, op.Addr, uint32(op.Width), nil)
		case bus.OpBlockRead:
			sub = appendRequest(sub, opBlockRead, op.Modifier, op.Width, op.Addr, uint32(op.Count*op.Width.Bytes()), nil)
		case bus.OpDelay:
			sub = appendRequest(sub, opDelay, 0, 0, 0, uint32(op.Delay.Microseconds()), nil)
		default:
			return nil, errors.New("usbvme: list operation #" + strconv.Itoa(i) + ": unknown operation")
		}
	}
	if len(sub) > maxPayload {
		return nil, errors.New("usbvme: list of " + strconv.Itoa(len(sub)) + " bytes is too large")
	}
	b, err := l.d.transact("list", appendRequest(nil, opList, 0, 0, 0, uint32(len(sub)), sub))
	out := make([]uint32, 0, l.Reads())
	for _, op := range l.Queued() {
		n := 0
		switch op.Kind {
		case bus.OpRead:
			n = 1
		case bus.OpBlockRead:
			n = op.Count
		}
		for j := 0; j < n; j++ {
			if len(b) < op.Width.Bytes() {
				if err == nil {
					err = errors.New("usbvme: list: short response")
				}
				return out, err
			}
			out = append(out, decode(b, op.Width))
			b = b[op.Width.Bytes():]
		}
	}
	return out, err
}

// dma implements bus.DmaTransfer.
//
// Transfers larger than a packet are split at maxPayload boundaries.
type dma struct {
	d *Dev
	t bus.Transfer
}

func (m *dma) Desc() bus.Transfer {
	return m.t
}

func (m *dma) Read(b []byte) (int, error) {
	if len(b) < int(m.t.Length) {
		return 0, m.short(len(b))
	}
	n := 0
	for n < int(m.t.Length) {
		c := chunk(int(m.t.Length) - n)
		p, err := m.d.transact("block read", appendRequest(nil, opBlockRead, m.t.Modifier, m.t.Width, m.t.Base+uint32(n), uint32(c), nil))
		n += copy(b[n:n+c], p)
		if err != nil {
			return n, err
		}
		if len(p) < c {
			break
		}
	}
	return n, nil
}

func (m *dma) Write(b []byte) (int, error) {
	if len(b) < int(m.t.Length) {
		return 0, m.short(len(b))
	}
	n := 0
	for n < int(m.t.Length) {
		c := chunk(int(m.t.Length) - n)
		p, err := m.d.transact("block write", appendRequest(nil, opBlockWrite, m.t.Modifier, m.t.Width, m.t.Base+uint32(n), uint32(c), b[n:n+c]))
		if err != nil {
			// The bridge reports the bytes written before the failure.
			done := 0
			if len(p) == 4 {
				done = min(int(binary.BigEndian.Uint32(p)), c)
			}
			return n + done, err
		}
		n += c
	}
	return n, nil
}

func (m *dma) Close() error {
	return nil
}

func (m *dma) short(n int) error {
	return errors.New("usbvme: buffer of " + strconv.Itoa(n) + " bytes is too small for " + m.t.String())
}

// chunk returns the size of the next packet.
func chunk(left int) int {
	if left > maxPayload {
		return maxPayload
	}
	return left
}

var _ bus.Interface = &Dev{}
