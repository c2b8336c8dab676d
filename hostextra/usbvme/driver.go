// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usbvme

import (
	"errors"
	"strconv"

	"periph.io/x/crate/conn/bus"
	"periph.io/x/crate/conn/bus/busreg"
	"periph.io/x/crate/conn/bus/desc"
	"periph.io/x/periph"
)

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
	m, args, err := desc.Options(configuration)
	if err != nil {
		return nil, err
	}
	if len(args) != 0 {
		return nil, errors.New("usbvme: unexpected argument " + strconv.Quote(args[0]))
	}
	opts := &Opts{}
	found := 0
	for k, v := range m {
		switch k {
		case "vid", "pid":
			i, err := desc.ParseUint(v, 16)
			if err != nil {
				return nil, err
			}
			if k == "vid" {
				opts.VID = uint16(i)
			} else {
				opts.PID = uint16(i)
			}
			found++
		case "serial":
			opts.Serial = v
		default:
			return nil, errors.New("usbvme: unknown option " + strconv.Quote(k))
		}
	}
	if found != 2 {
		return nil, errors.New("usbvme: vid= and pid= are required")
	}
	return opts, nil
}

// driver implements periph.Driver.
type driver struct {
	// open is replaced in tests.
	open func(opts *Opts) (conn, error)
}

func (d *driver) String() string {
	return "crate-usbvme"
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
	if !disabled {
		periph.MustRegister(&drv)
	}
}

var drv = driver{open: openUSB}

var _ periph.Driver = &drv
