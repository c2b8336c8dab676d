// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package null

import (
	"errors"
	"strings"
	"testing"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
	"periph.io/x/crate/subsystem"
)

func TestDescriptionFile(t *testing.T) {
	f := busreg.New()
	if err := f.Add(Type, Creator); err != nil {
		t.Fatal(err)
	}
	s := subsystem.New(f)
	crates, err := s.ProcessDescriptionFile(strings.NewReader("null some-configuration\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(crates) != 1 || crates[0] != 0 {
		t.Fatalf("crates = %v", crates)
	}
	i, err := s.Interface(0)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := i.(*Dev)
	if !ok {
		t.Fatalf("got %T", i)
	}
	if d.Configuration() != "some-configuration" {
		t.Fatalf("Configuration() = %q", d.Configuration())
	}
	if d.String() != "null(some-configuration)" || d.DeviceType() != Type {
		t.Fatalf("String() = %q", d)
	}
}

func TestDev_Capabilities(t *testing.T) {
	d := New("")
	if d.CanMap() || d.HasBlockTransfer() || d.HasListProcessor() {
		t.Fatal("null supports nothing")
	}
	if _, err := d.CreateAddressRange(bus.A24UserData, 0, 16); !errors.Is(err, bus.ErrNotSupported) {
		t.Fatal(err)
	}
	if _, err := d.CreatePio(); !errors.Is(err, bus.ErrNotSupported) {
		t.Fatal(err)
	}
	if _, err := d.CreateList(); !errors.Is(err, bus.ErrNotSupported) {
		t.Fatal(err)
	}
	if _, err := d.CreateDmaTransfer(bus.A32UserBlock, bus.D32, 0, 16); !errors.Is(err, bus.ErrNotSupported) {
		t.Fatal(err)
	}
	if err := d.OnLock(); err != nil {
		t.Fatal(err)
	}
	if err := d.OnUnlock(); err != nil {
		t.Fatal(err)
	}
	if d.String() != "null" {
		t.Fatal(d.String())
	}
}

func TestDriver(t *testing.T) {
	d := driver{}
	if ok, err := d.Init(); !ok || err != nil {
		t.Fatalf("Init() = %t, %v", ok, err)
	}
	if _, ok := busreg.Default().Lookup(Type); !ok {
		t.Fatal("Init() didn't register the creator")
	}
}
