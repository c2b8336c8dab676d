// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build cgo

package usbvme

import (
	"errors"
	"log"

	"github.com/google/gousb"
)

const disabled = false

// endpoint is the bulk endpoint number used in both directions.
const endpoint = 1

// usbConn is an open bridge.
type usbConn struct {
	ctx  *gousb.Context
	d    *gousb.Device
	done func()
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
}

func (u *usbConn) Read(b []byte) (int, error) {
	return u.in.Read(b)
}

func (u *usbConn) Write(b []byte) (int, error) {
	return u.out.Write(b)
}

func (u *usbConn) Close() error {
	u.done()
	err := u.d.Close()
	if err1 := u.ctx.Close(); err == nil {
		err = err1
	}
	return err
}

func openUSB(opts *Opts) (conn, error) {
	ctx := gousb.NewContext()
	devs, err := ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		return uint16(d.Vendor) == opts.VID && uint16(d.Product) == opts.PID
	})
	// OpenDevices returns the devices it could open even on error. If the
	// user needs root access, LIBUSB_ERROR_ACCESS (-3) is returned.
	var found *gousb.Device
	for _, d := range devs {
		if found == nil && matchSerial(d, opts.Serial) {
			found = d
			continue
		}
		d.Close()
	}
	if found == nil {
		ctx.Close()
		if err != nil {
			return nil, errors.New("usbvme: " + opts.String() + ": " + err.Error())
		}
		return nil, errors.New("usbvme: " + opts.String() + ": device not found")
	}
	if err != nil {
		log.Printf("usbvme: %s: ignoring enumeration error: %v", opts, err)
	}
	if err := found.SetAutoDetach(true); err != nil {
		log.Printf("usbvme: %s: SetAutoDetach: %v", opts, err)
	}
	u := &usbConn{ctx: ctx, d: found}
	i, done, err := found.DefaultInterface()
	if err != nil {
		u.abort()
		return nil, errors.New("usbvme: " + opts.String() + ": " + err.Error())
	}
	u.done = done
	if u.in, err = i.InEndpoint(endpoint); err != nil {
		u.Close()
		return nil, errors.New("usbvme: " + opts.String() + ": InEndpoint: " + err.Error())
	}
	if u.out, err = i.OutEndpoint(endpoint); err != nil {
		u.Close()
		return nil, errors.New("usbvme: " + opts.String() + ": OutEndpoint: " + err.Error())
	}
	return u, nil
}

func (u *usbConn) abort() {
	u.d.Close()
	u.ctx.Close()
}

func matchSerial(d *gousb.Device, serial string) bool {
	if serial == "" {
		return true
	}
	s, err := d.SerialNumber()
	if err != nil {
		// Sometimes the USB device returns junk.
		log.Printf("usbvme: SerialNumber: %v", err)
		return false
	}
	return s == serial
}
