// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package null implements the "null" bus interface.
//
// It accepts any configuration and supports no capability. It is useful to
// verify a description file and as a placeholder for a crate that is
// temporarily absent.
//
// Description line:
//
//  null <anything>
package null

import (
	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
	"periph.io/x/periph"
)

// Type is the type tag of this interface.
const Type = "null"

// Dev is a bus interface doing nothing.
type Dev struct {
	bus.Base
	cfg string
}

// New returns a Dev keeping configuration verbatim.
func New(configuration string) *Dev {
	return &Dev{Base: bus.Base{Type: Type}, cfg: configuration}
}

func (d *Dev) String() string {
	if d.cfg == "" {
		return Type
	}
	return Type + "(" + d.cfg + ")"
}

// Configuration returns the configuration text the Dev was created with.
func (d *Dev) Configuration() string {
	return d.cfg
}

// Creator creates Dev.
var Creator = busreg.CreatorFunc(func(typ, configuration string) (bus.Interface, error) {
	return New(configuration), nil
})

// driver implements periph.Driver.
type driver struct {
}

func (d *driver) String() string {
	return "crate-null"
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
