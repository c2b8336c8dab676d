// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usbvme

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
)

func TestPio(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{VID: 0x16dc, PID: 0xb})
	p, _ := d.CreatePio()
	if err := p.Write32(bus.A24UserData, 0x10, 0x11223344); err != nil {
		t.Fatal(err)
	}
	expected := []byte{opWrite, 0x39, 4, 0, 0, 0, 0, 0x10, 0, 0, 0, 4, 0x11, 0x22, 0x33, 0x44}
	if !bytes.Equal(f.requests[0], expected) {
		t.Fatalf("request = %#v", f.requests[0])
	}
	if v, err := p.Read16(bus.A24UserData, 0x12); err != nil || v != 0x3344 {
		t.Fatalf("Read16() = %#x, %v", v, err)
	}
	expected = []byte{opRead, 0x39, 2, 0, 0, 0, 0, 0x12, 0, 0, 0, 2}
	if !bytes.Equal(f.requests[1], expected) {
		t.Fatalf("request = %#v", f.requests[1])
	}
	if err := p.Write8(bus.A24UserData, 0x20, 0xaa); err != nil {
		t.Fatal(err)
	}
	if err := p.Write16(bus.A24UserData, 0x22, 0xbbcc); err != nil {
		t.Fatal(err)
	}
	if v, err := p.Read8(bus.A24UserData, 0x20); err != nil || v != 0xaa {
		t.Fatalf("Read8() = %#x, %v", v, err)
	}
	if v, err := p.Read32(bus.A24UserData, 0x20); err != nil || v != 0xaa00bbcc {
		t.Fatalf("Read32() = %#x, %v", v, err)
	}
}

func TestPio_Status(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{})
	p, _ := d.CreatePio()
	_, err := p.Read32(bus.A32UserData, 0x1000)
	var e *bus.Error
	if !errors.As(err, &e) || e.Code != statusBusError || e.Reason != "bus error" {
		t.Fatalf("Read32() = %v", err)
	}
	f.status = statusArbitration
	if err := p.Write8(bus.A24UserData, 0, 1); !errors.As(err, &e) || e.Code != statusArbitration {
		t.Fatalf("Write8() = %v", err)
	}
}

func TestToErr(t *testing.T) {
	if toErr("x", statusOK) != nil {
		t.Fatal("OK must be nil")
	}
	for i := statusBusError; i <= statusOverflow+1; i++ {
		err := toErr("op", i)
		var e *bus.Error
		if !errors.As(err, &e) || e.Code != i || e.Op != "usbvme: op" || e.Reason == "" {
			t.Fatalf("toErr(%d) = %v", i, err)
		}
	}
	if s := toErr("op", 42).Error(); !bytes.Contains([]byte(s), []byte("unknown status 42")) {
		t.Fatal(s)
	}
}

func TestList(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{})
	if !d.HasListProcessor() || !d.HasBlockTransfer() || d.CanMap() {
		t.Fatal("unexpected capabilities")
	}
	l, _ := d.CreateList()
	l.AddWrite(bus.A24UserData, 0, bus.D32, 0x01020304)
	l.AddDelay(5 * time.Microsecond)
	l.AddRead(bus.A24UserData, 2, bus.D16)
	l.AddBlockRead(bus.A24UserData, 0, bus.D8, 3)
	got, err := l.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if spew.Sdump(got) != spew.Sdump([]uint32{0x0304, 1, 2, 3}) {
		t.Fatalf("Execute() = %s", spew.Sdump(got))
	}
	// One transaction for the whole list.
	if len(f.requests) != 1 || f.requests[0][0] != opList {
		t.Fatalf("requests = %s", spew.Sdump(f.requests))
	}
	if f.delay != 5*time.Microsecond {
		t.Fatalf("delay = %s", f.delay)
	}
}

func TestList_Error(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{})
	l, _ := d.CreateList()
	l.AddRead(bus.A24UserData, 0, bus.D32)
	l.AddRead(bus.A32UserData, 0, bus.D32)
	l.AddRead(bus.A24UserData, 0, bus.D32)
	got, err := l.Execute()
	var e *bus.Error
	if !errors.As(err, &e) || e.Code != statusBusError {
		t.Fatalf("Execute() = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Execute() = %v", got)
	}
}

func TestList_Invalid(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{})
	for i, w := range []bus.Width{bus.D8, bus.D64} {
		l, _ := d.CreateList()
		l.AddWrite(bus.A24UserData, 0, bus.D32, 0x01020304)
		if w == bus.D64 {
			l.AddWrite(bus.A24UserData, 8, w, 1)
		} else {
			l.AddBlockRead(bus.A24UserData, 0, w, -1)
		}
		if got, err := l.Execute(); err == nil || got != nil {
			t.Fatalf("#%d: Execute() = %v, %v", i, got, err)
		}
	}
	if len(f.requests) != 0 {
		t.Fatalf("an invalid list must not be sent: %s", spew.Sdump(f.requests))
	}
}

func TestDma(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{})
	if _, err := d.CreateDmaTransfer(bus.A24UserBlock, bus.D32, 2, 8); err == nil {
		t.Fatal("misaligned transfer must fail")
	}
	m, err := d.CreateDmaTransfer(bus.A24UserBlock, bus.D32, 0, 8)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := m.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8}); n != 8 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	b := make([]byte, 8)
	if n, err := m.Read(b); n != 8 || err != nil || b[4] != 5 {
		t.Fatalf("Read() = %d, %v, %v", n, err, b)
	}
	if _, err := m.Read(b[:4]); err == nil {
		t.Fatal("short buffer must fail")
	}
}

func TestDma_Chunks(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{})
	m, _ := d.CreateDmaTransfer(bus.A24UserBlock, bus.D32, 0, maxPayload+16)
	b := make([]byte, maxPayload+16)
	b[maxPayload] = 0x42
	if n, err := m.Write(b); n != len(b) || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if len(f.requests) != 2 {
		t.Fatalf("%d requests", len(f.requests))
	}
	if addr := binary.BigEndian.Uint32(f.requests[1][4:]); addr != maxPayload {
		t.Fatalf("second chunk at %#x", addr)
	}
	if f.mem[maxPayload] != 0x42 {
		t.Fatal("second chunk lost")
	}
}

func TestDma_Partial(t *testing.T) {
	f := newFakeBridge()
	d := newDev(f, &Opts{})
	// The memory is 0x20000 bytes long; the bridge transfers up to the end.
	m, _ := d.CreateDmaTransfer(bus.A24UserBlock, bus.D32, uint32(len(f.mem)-8), 16)
	n, err := m.Read(make([]byte, 16))
	var e *bus.Error
	if n != 8 || !errors.As(err, &e) || e.Code != statusBusError {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	n, err = m.Write(make([]byte, 16))
	if n != 8 || !errors.As(err, &e) {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	var p *bus.PartialTransferError
	if err := bus.CheckTransfer(m, 8, nil); !errors.As(err, &p) {
		t.Fatal(err)
	}
}

func TestTransact_USBError(t *testing.T) {
	f := newFakeBridge()
	f.readErr = io.ErrUnexpectedEOF
	d := newDev(f, &Opts{})
	p, _ := d.CreatePio()
	if _, err := p.Read8(bus.A24UserData, 0); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Read8() = %v", err)
	}
	if err := d.Close(); err != nil || !f.closed {
		t.Fatal("Close() failed")
	}
	if err := d.Close(); err != nil {
		t.Fatal("Close() must be idempotent")
	}
	if _, err := p.Read8(bus.A24UserData, 0); err == nil {
		t.Fatal("use after Close() must fail")
	}
}

func TestNew(t *testing.T) {
	defer reset(t)
	f := newFakeBridge()
	drv.open = func(opts *Opts) (conn, error) {
		if opts.VID != 0x16dc || opts.PID != 0xb || opts.Serial != "VM0123" {
			t.Fatalf("unexpected opts %s", opts)
		}
		return f, nil
	}
	i, err := Creator.Create(Type, "vid=0x16dc pid=0x000b serial=VM0123")
	if err != nil {
		t.Fatal(err)
	}
	if i.String() != "usbvme(0x16dc:0xb/VM0123)" || i.DeviceHandle() != conn(f) {
		t.Fatal(i.String())
	}
	e := errors.New("access denied")
	drv.open = func(opts *Opts) (conn, error) {
		return nil, e
	}
	if _, err := Creator.Create(Type, "vid=1 pid=2"); err != e {
		t.Fatal(err)
	}
}

func TestParse_Error(t *testing.T) {
	data := []string{
		"",
		"vid=1",
		"vid=1 pid=0x10000",
		"vid=1 pid=2 usb3",
		"vid=1 pid=2 speed=high",
		"vid=1 vid=2 pid=2",
	}
	for i, line := range data {
		if _, err := parse(line); err == nil {
			t.Fatalf("#%d: parse(%q) succeeded", i, line)
		}
	}
}

func TestDriver(t *testing.T) {
	if ok, err := drv.Init(); !ok || err != nil {
		t.Fatalf("Init() = %t, %v", ok, err)
	}
	if _, ok := busreg.Default().Lookup(Type); !ok {
		t.Fatal("Init() didn't register the creator")
	}
}

//

func reset(t *testing.T) {
	drv = driver{open: openUSB}
}

// fakeBridge is a bridge with 128KiB of A24UserData memory at address 0.
//
// Block transfers reach the same memory.
type fakeBridge struct {
	mem      []byte
	requests [][]byte
	resp     bytes.Buffer
	delay    time.Duration
	status   byte
	readErr  error
	closed   bool
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{mem: make([]byte, 0x20000)}
}

func (f *fakeBridge) Write(b []byte) (int, error) {
	f.requests = append(f.requests, append([]byte(nil), b...))
	var payload []byte
	status := f.status
	if b[0] == opList {
		for r := b[reqHeaderSize:]; len(r) != 0 && status == statusOK; {
			var n int
			var p []byte
			p, n, status = f.do(r)
			payload = append(payload, p...)
			r = r[n:]
		}
	} else if status == statusOK {
		payload, _, status = f.do(b)
	}
	var h [respHeaderSize]byte
	h[0] = status
	binary.BigEndian.PutUint32(h[4:], uint32(len(payload)))
	f.resp.Write(h[:])
	f.resp.Write(payload)
	return len(b), nil
}

// do executes one request and returns the response payload, the request
// length and the status.
func (f *fakeBridge) do(r []byte) ([]byte, int, byte) {
	op := r[0]
	am := bus.AddressModifier(r[1])
	addr := int(binary.BigEndian.Uint32(r[4:]))
	count := int(binary.BigEndian.Uint32(r[8:]))
	switch op {
	case opDelay:
		f.delay += time.Duration(count) * time.Microsecond
		return nil, reqHeaderSize, statusOK
	case opRead, opWrite:
		if am != bus.A24UserData || addr+count > len(f.mem) {
			n := reqHeaderSize
			if op == opWrite {
				n += count
			}
			return nil, n, statusBusError
		}
		if op == opRead {
			return append([]byte(nil), f.mem[addr:addr+count]...), reqHeaderSize, statusOK
		}
		copy(f.mem[addr:], r[reqHeaderSize:reqHeaderSize+count])
		return nil, reqHeaderSize + count, statusOK
	case opBlockRead, opBlockWrite:
		if (op == opBlockRead && am == bus.A24UserData) || am == bus.A24UserBlock {
			end := min(addr+count, len(f.mem))
			st := byte(statusOK)
			if end != addr+count {
				st = statusBusError
			}
			if op == opBlockRead {
				return append([]byte(nil), f.mem[addr:end]...), reqHeaderSize, st
			}
			copy(f.mem[addr:end], r[reqHeaderSize:])
			var p []byte
			if st != statusOK {
				p = binary.BigEndian.AppendUint32(nil, uint32(end-addr))
			}
			return p, reqHeaderSize + count, st
		}
		return nil, reqHeaderSize, statusBusError
	}
	return nil, len(r), statusBadRequest
}

func (f *fakeBridge) Read(b []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.resp.Read(b)
}

func (f *fakeBridge) Close() error {
	f.closed = true
	return nil
}
