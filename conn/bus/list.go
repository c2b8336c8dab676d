// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"errors"
	"strconv"
	"time"
)

// OpKind is the kind of a queued list operation.
type OpKind uint8

// Kinds of list operations.
const (
	OpWrite OpKind = iota
	OpRead
	OpBlockRead
	OpDelay
)

// Op is one queued list operation.
type Op struct {
	Kind     OpKind
	Modifier AddressModifier
	Addr     uint32
	Width    Width
	Value    uint32        // OpWrite
	Count    int           // OpBlockRead
	Delay    time.Duration // OpDelay
}

// Check returns an error if no list processor can execute op.
//
// Accesses are D8, D16 or D32 and counts and delays can't be negative.
func (op *Op) Check() error {
	switch op.Kind {
	case OpWrite, OpRead, OpBlockRead:
		switch op.Width {
		case D8, D16, D32:
		default:
			return errors.New("list access doesn't support " + op.Width.String())
		}
		if op.Count < 0 {
			return errors.New("negative block read count " + strconv.Itoa(op.Count))
		}
	case OpDelay:
		if op.Delay < 0 {
			return errors.New("negative delay " + op.Delay.String())
		}
	default:
		return errors.New("unknown operation")
	}
	return nil
}

// Ops is the queuing part of a List.
//
// Backends with a list processor embed it and implement Execute() by
// encoding Queued().
type Ops struct {
	ops []Op
}

// AddWrite implements List.
func (o *Ops) AddWrite(am AddressModifier, addr uint32, w Width, v uint32) {
	o.ops = append(o.ops, Op{Kind: OpWrite, Modifier: am, Addr: addr, Width: w, Value: v})
}

// AddRead implements List.
func (o *Ops) AddRead(am AddressModifier, addr uint32, w Width) {
	o.ops = append(o.ops, Op{Kind: OpRead, Modifier: am, Addr: addr, Width: w})
}

// AddBlockRead implements List.
func (o *Ops) AddBlockRead(am AddressModifier, addr uint32, w Width, count int) {
	o.ops = append(o.ops, Op{Kind: OpBlockRead, Modifier: am, Addr: addr, Width: w, Count: count})
}

// AddDelay implements List.
func (o *Ops) AddDelay(d time.Duration) {
	o.ops = append(o.ops, Op{Kind: OpDelay, Delay: d})
}

// Len implements List.
func (o *Ops) Len() int {
	return len(o.ops)
}

// Reset implements List.
func (o *Ops) Reset() {
	o.ops = nil
}

// Queued returns the queued operations in order.
func (o *Ops) Queued() []Op {
	return o.ops
}

// Check returns the error of the first queued operation that can't be
// executed.
//
// Execute implementations call it before touching the bus so an invalid list
// has no side effect.
func (o *Ops) Check() error {
	for i := range o.ops {
		if err := o.ops[i].Check(); err != nil {
			return listErr(i, err)
		}
	}
	return nil
}

// Reads returns the number of values Execute is expected to return.
func (o *Ops) Reads() int {
	n := 0
	for _, op := range o.ops {
		switch op.Kind {
		case OpRead:
			n++
		case OpBlockRead:
			if op.Count > 0 {
				n += op.Count
			}
		}
	}
	return n
}

// SoftList is a List simulated by issuing one Pio access per operation.
//
// It is what callers use when the adapter has no list processor.
type SoftList struct {
	Ops
	p     Pio
	sleep func(time.Duration)
}

// NewSoftList returns a List executing its operations through p.
func NewSoftList(p Pio) *SoftList {
	return &SoftList{p: p, sleep: time.Sleep}
}

// Execute implements List.
//
// Execution stops at the first failure. The values read so far are returned
// along the error.
func (s *SoftList) Execute() ([]uint32, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	out := make([]uint32, 0, s.Reads())
	for i, op := range s.ops {
		switch op.Kind {
		case OpWrite:
			if err := PioWrite(s.p, op.Modifier, op.Addr, op.Width, op.Value); err != nil {
				return out, listErr(i, err)
			}
		case OpRead:
			v, err := PioRead(s.p, op.Modifier, op.Addr, op.Width)
			if err != nil {
				return out, listErr(i, err)
			}
			out = append(out, v)
		case OpBlockRead:
			for j := 0; j < op.Count; j++ {
				v, err := PioRead(s.p, op.Modifier, op.Addr+uint32(j*op.Width.Bytes()), op.Width)
				if err != nil {
					return out, listErr(i, err)
				}
				out = append(out, v)
			}
		case OpDelay:
			s.sleep(op.Delay)
		default:
			return out, listErr(i, errors.New("unknown operation"))
		}
	}
	return out, nil
}

// ListFor returns the adapter's command list or, when it has no list
// processor, a SoftList over its Pio.
func ListFor(i Interface) (List, error) {
	l, err := i.CreateList()
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrNotSupported) {
		return nil, err
	}
	p, err := i.CreatePio()
	if err != nil {
		return nil, err
	}
	return NewSoftList(p), nil
}

// PioRead reads one value of width w.
func PioRead(p Pio, am AddressModifier, addr uint32, w Width) (uint32, error) {
	switch w {
	case D8:
		v, err := p.Read8(am, addr)
		return uint32(v), err
	case D16:
		v, err := p.Read16(am, addr)
		return uint32(v), err
	case D32:
		return p.Read32(am, addr)
	default:
		return 0, errors.New("bus: single shot access doesn't support " + w.String())
	}
}

// PioWrite writes one value of width w.
func PioWrite(p Pio, am AddressModifier, addr uint32, w Width, v uint32) error {
	switch w {
	case D8:
		return p.Write8(am, addr, uint8(v))
	case D16:
		return p.Write16(am, addr, uint16(v))
	case D32:
		return p.Write32(am, addr, v)
	default:
		return errors.New("bus: single shot access doesn't support " + w.String())
	}
}

func listErr(i int, err error) error {
	return &listError{index: i, err: err}
}

type listError struct {
	index int
	err   error
}

func (l *listError) Error() string {
	return "bus: list operation #" + strconv.Itoa(l.index) + ": " + l.err.Error()
}

func (l *listError) Unwrap() error {
	return l.err
}

var _ List = &SoftList{}
