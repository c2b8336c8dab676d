// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package subsystemsmoketest is leveraged by crates to verify that a crate
// is working as expected, through every capability its interface has.
//
// It needs a memory module in the crate; its content at the tested addresses
// is restored once the test completes successfully.
package subsystemsmoketest

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/subsystem"
)

// SmokeTest is imported by crates.
type SmokeTest struct {
	// Subsystem holds the crates. It must be set before calling Run.
	Subsystem *subsystem.Subsystem
}

// Name implements the SmokeTest interface.
func (s *SmokeTest) Name() string {
	return "subsystem"
}

// Description implements the SmokeTest interface.
func (s *SmokeTest) Description() string {
	return "Tests a crate through PIO, mapping, command list and block transfer"
}

// Run implements the SmokeTest interface.
func (s *SmokeTest) Run(f *flag.FlagSet, args []string) error {
	crate := f.Int("crate", 0, "index of the crate to test")
	amFlag := f.String("am", "0x39", "address modifier of the memory module")
	addrFlag := f.String("addr", "0", "address of the memory to test")
	size := f.Uint("size", 256, "number of bytes to test; multiple of 4")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		f.Usage()
		return errors.New("unrecognized arguments")
	}
	am, err := strconv.ParseUint(*amFlag, 0, 8)
	if err != nil {
		return fmt.Errorf("-am: %v", err)
	}
	addr, err := strconv.ParseUint(*addrFlag, 0, 32)
	if err != nil {
		return fmt.Errorf("-addr: %v", err)
	}
	if *size == 0 || *size%4 != 0 || uint64(*size)+addr > 1<<32 {
		return errors.New("-size must be a non zero multiple of 4 fitting the address space")
	}
	if s.Subsystem == nil {
		return errors.New("no subsystem")
	}
	i, err := s.Subsystem.Interface(*crate)
	if err != nil {
		return err
	}
	return s.Subsystem.With(func() error {
		return testCrate(i, bus.AddressModifier(am), uint32(addr), uint32(*size))
	})
}

//

// testCrate must be called with the bus lock held.
func testCrate(i bus.Interface, am bus.AddressModifier, addr, size uint32) error {
	p, err := i.CreatePio()
	if err != nil {
		return fmt.Errorf("%s: CreatePio: %w", i, err)
	}
	words := int(size / 4)
	saved := make([]uint32, words)
	for j := range saved {
		if saved[j], err = p.Read32(am, addr+uint32(4*j)); err != nil {
			return err
		}
	}
	if err := testPio(p, am, addr, words); err != nil {
		return err
	}
	if i.CanMap() {
		if err := testMap(i, am, addr, size); err != nil {
			return err
		}
	} else {
		log.Printf("%s: skipping mapping", i)
	}
	if err := testList(i, am, addr, words); err != nil {
		return err
	}
	if bam, ok := blockModifier(am); ok && i.HasBlockTransfer() {
		if err := testDma(i, p, bam, am, addr, size); err != nil {
			return err
		}
	} else {
		log.Printf("%s: skipping block transfer", i)
	}
	for j, v := range saved {
		if err := p.Write32(am, addr+uint32(4*j), v); err != nil {
			return err
		}
	}
	return nil
}

func pattern(j int, seed uint32) uint32 {
	return uint32(j)*0x9e3779b1 ^ seed
}

func testPio(p bus.Pio, am bus.AddressModifier, addr uint32, words int) error {
	for j := 0; j < words; j++ {
		if err := p.Write32(am, addr+uint32(4*j), pattern(j, 0x5a5a5a5a)); err != nil {
			return err
		}
	}
	for j := 0; j < words; j++ {
		a := addr + uint32(4*j)
		v, err := p.Read32(am, a)
		if err != nil {
			return err
		}
		if e := pattern(j, 0x5a5a5a5a); v != e {
			return fmt.Errorf("pio: at %#x got %#x, expected %#x", a, v, e)
		}
	}
	// Narrower accesses see the same memory, big endian.
	v, err := p.Read16(am, addr+2)
	if err != nil {
		return err
	}
	if e := uint16(pattern(0, 0x5a5a5a5a)); v != e {
		return fmt.Errorf("pio: D16 at %#x got %#x, expected %#x", addr+2, v, e)
	}
	if err := p.Write8(am, addr, 0xc3); err != nil {
		return err
	}
	b, err := p.Read8(am, addr)
	if err != nil {
		return err
	}
	if b != 0xc3 {
		return fmt.Errorf("pio: D8 at %#x got %#x, expected 0xc3", addr, b)
	}
	return nil
}

func testMap(i bus.Interface, am bus.AddressModifier, addr, size uint32) error {
	r, err := i.CreateAddressRange(am, addr, size)
	if err != nil {
		return fmt.Errorf("%s: CreateAddressRange: %w", i, err)
	}
	defer r.Close()
	words := size / 4
	for j := uint32(0); j < words; j++ {
		if err := r.Poke32(j, pattern(int(j), 0x3c3c3c3c)); err != nil {
			return err
		}
	}
	for j := uint32(0); j < words; j++ {
		v, err := r.Peek32(j)
		if err != nil {
			return err
		}
		if e := pattern(int(j), 0x3c3c3c3c); v != e {
			return fmt.Errorf("map: at offset %d got %#x, expected %#x", j, v, e)
		}
	}
	var re *bus.RangeError
	if _, err := r.Peek32(words); !errors.As(err, &re) {
		return fmt.Errorf("map: access past the range end returned %v", err)
	}
	return r.Close()
}

func testList(i bus.Interface, am bus.AddressModifier, addr uint32, words int) error {
	l, err := bus.ListFor(i)
	if err != nil {
		return fmt.Errorf("%s: list: %w", i, err)
	}
	for j := 0; j < words; j++ {
		l.AddWrite(am, addr+uint32(4*j), bus.D32, pattern(j, 0x0f0f0f0f))
	}
	l.AddBlockRead(am, addr, bus.D32, words)
	got, err := l.Execute()
	if err != nil {
		return err
	}
	if len(got) != words {
		return fmt.Errorf("list: got %d values, expected %d", len(got), words)
	}
	for j, v := range got {
		if e := pattern(j, 0x0f0f0f0f); v != e {
			return fmt.Errorf("list: value #%d got %#x, expected %#x", j, v, e)
		}
	}
	return nil
}

func testDma(i bus.Interface, p bus.Pio, bam, am bus.AddressModifier, addr, size uint32) error {
	t, err := i.CreateDmaTransfer(bam, bus.D32, addr, size)
	if err != nil {
		return fmt.Errorf("%s: CreateDmaTransfer: %w", i, err)
	}
	defer t.Close()
	b := make([]byte, size)
	for j := range b {
		b[j] = byte(j * 7)
	}
	n, err := t.Write(b)
	if err := bus.CheckTransfer(t, n, err); err != nil {
		return err
	}
	// The block write is visible to single shot accesses.
	v, err := p.Read8(am, addr+size-1)
	if err != nil {
		return err
	}
	if v != b[size-1] {
		return fmt.Errorf("dma: at %#x got %#x, expected %#x", addr+size-1, v, b[size-1])
	}
	r := make([]byte, size)
	n, err = t.Read(r)
	if err := bus.CheckTransfer(t, n, err); err != nil {
		return err
	}
	for j := range r {
		if r[j] != b[j] {
			return fmt.Errorf("dma: byte #%d got %#x, expected %#x", j, r[j], b[j])
		}
	}
	return nil
}

// blockModifier returns the block transfer modifier of the address space of
// am.
func blockModifier(am bus.AddressModifier) (bus.AddressModifier, bool) {
	switch am {
	case bus.A32UserData, bus.A32UserProgram:
		return bus.A32UserBlock, true
	case bus.A32SuperData, bus.A32SuperProg:
		return bus.A32SuperBlock, true
	case bus.A24UserData, bus.A24UserProgram:
		return bus.A24UserBlock, true
	case bus.A24SuperData, bus.A24SuperProg:
		return bus.A24SuperBlock, true
	}
	return 0, false
}
