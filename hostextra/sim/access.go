// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sim

import (
	"errors"
	"fmt"
	"strconv"

	"periph.io/x/crate/conn/bus"
)

// pio implements bus.Pio.
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
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.d.read(am, addr, w)
}

func (p *pio) write(am bus.AddressModifier, addr uint32, w bus.Width, v uint32) error {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.d.write(am, addr, w, v)
}

// list implements bus.List with the simulated list processor.
//
// The whole list executes atomically with regard to other accesses to the
// Dev.
type list struct {
	bus.Ops
	d *Dev
}

func (l *list) Execute() ([]uint32, error) {
	if err := l.Check(); err != nil {
		return nil, err
	}
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	out := make([]uint32, 0, l.Reads())
	for i, op := range l.Queued() {
		switch op.Kind {
		case bus.OpWrite:
			if err := l.d.write(op.Modifier, op.Addr, op.Width, op.Value); err != nil {
				return out, listErr(i, err)
			}
		case bus.OpRead:
			v, err := l.d.read(op.Modifier, op.Addr, op.Width)
			if err != nil {
				return out, listErr(i, err)
			}
			out = append(out, v)
		case bus.OpBlockRead:
			for j := 0; j < op.Count; j++ {
				v, err := l.d.read(op.Modifier, op.Addr+uint32(j*op.Width.Bytes()), op.Width)
				if err != nil {
					return out, listErr(i, err)
				}
				out = append(out, v)
			}
		case bus.OpDelay:
			l.d.stats.Delay += op.Delay
		default:
			return out, listErr(i, errors.New("unknown operation"))
		}
	}
	return out, nil
}

func listErr(i int, err error) error {
	return fmt.Errorf("sim: list operation #%d: %w", i, err)
}

// dma implements bus.DmaTransfer.
//
// A transfer running past the end of the region moves the bytes up to the
// end and reports a short count.
type dma struct {
	d *Dev
	t bus.Transfer
}

func (m *dma) Desc() bus.Transfer {
	return m.t
}

func (m *dma) Read(b []byte) (int, error) {
	src, err := m.span(len(b))
	if err != nil {
		return 0, err
	}
	defer m.d.mu.Unlock()
	m.d.stats.Reads++
	return copy(b, src), nil
}

func (m *dma) Write(b []byte) (int, error) {
	dst, err := m.span(len(b))
	if err != nil {
		return 0, err
	}
	defer m.d.mu.Unlock()
	m.d.stats.Writes++
	return copy(dst, b), nil
}

func (m *dma) Close() error {
	return nil
}

// span returns the region memory covered by the transfer and returns with
// mu held on success.
func (m *dma) span(n int) ([]byte, error) {
	if n < int(m.t.Length) {
		return nil, errors.New("sim: buffer of " + strconv.Itoa(n) + " bytes is too small for " + m.t.String())
	}
	m.d.mu.Lock()
	r, off, err := m.d.find("dma", dataModifier(m.t.Modifier), m.t.Base, 1)
	if err != nil {
		m.d.mu.Unlock()
		return nil, err
	}
	end := uint64(off) + uint64(m.t.Length)
	if end > uint64(len(r.mem)) {
		end = uint64(len(r.mem))
	}
	return r.mem[off:end], nil
}
