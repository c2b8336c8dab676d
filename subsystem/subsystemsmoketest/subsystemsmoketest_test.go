// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package subsystemsmoketest

import (
	"flag"
	"io"
	"testing"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
	"periph.io/x/crate/hostextra/null"
	"periph.io/x/crate/hostextra/sim"
	"periph.io/x/crate/subsystem"
)

func TestTestCrate(t *testing.T) {
	for _, opts := range []sim.Opts{
		{Lists: true, DMA: true},
		{Lists: false, DMA: false},
	} {
		opts.Regions = []sim.Region{{Modifier: bus.A24UserData, Base: 0x1000, Size: 0x1000}}
		d, err := sim.New(&opts)
		if err != nil {
			t.Fatal(err)
		}
		p, _ := d.CreatePio()
		if err := p.Write32(bus.A24UserData, 0x1010, 0xfeedface); err != nil {
			t.Fatal(err)
		}
		if err := testCrate(d, bus.A24UserData, 0x1000, 0x100); err != nil {
			t.Fatal(err)
		}
		// The memory content is restored.
		if v, _ := p.Read32(bus.A24UserData, 0x1010); v != 0xfeedface {
			t.Fatalf("memory not restored: %#x", v)
		}
	}
}

func TestTestCrate_Unmapped(t *testing.T) {
	d, err := sim.New(&sim.Opts{Regions: []sim.Region{{Modifier: bus.A24UserData, Base: 0x1000, Size: 0x100}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := testCrate(d, bus.A24UserData, 0x1080, 0x100); err == nil {
		t.Fatal("expected bus error")
	}
}

func TestTestCrate_NoPio(t *testing.T) {
	if err := testCrate(null.New(""), bus.A24UserData, 0, 0x10); err == nil {
		t.Fatal("expected failure")
	}
}

func TestRun_Args(t *testing.T) {
	f := busreg.New()
	s := SmokeTest{Subsystem: subsystem.New(f)}
	if s.Name() != "subsystem" || s.Description() == "" {
		t.Fatal("unexpected identity")
	}
	data := [][]string{
		{"extra"},
		{"-am", "0x100"},
		{"-addr", "zz"},
		{"-size", "3"},
		{"-size", "0"},
		{"-addr", "0xffffff00", "-size", "0x200"},
		// No crate installed.
		{"-crate", "0"},
	}
	for i, args := range data {
		fs := flag.NewFlagSet("subsystem", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		if err := s.Run(fs, args); err == nil {
			t.Fatalf("#%d: Run(%q) succeeded", i, args)
		}
	}
}

func TestBlockModifier(t *testing.T) {
	if am, ok := blockModifier(bus.A24UserData); !ok || am != bus.A24UserBlock {
		t.Fatal(am)
	}
	if am, ok := blockModifier(bus.A32SuperProg); !ok || am != bus.A32SuperBlock {
		t.Fatal(am)
	}
	if _, ok := blockModifier(bus.A16User); ok {
		t.Fatal("A16 has no block transfer")
	}
}
