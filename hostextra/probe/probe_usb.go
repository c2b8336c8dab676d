// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build cgo && !windows

package probe

import (
	"log"

	"github.com/google/gousb"
)

func scan() ([]Candidate, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	var out []Candidate
	devs, err := ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		// Return true to keep the device open, to read its serial number.
		b, ok := lookup(uint16(d.Vendor), uint16(d.Product))
		if ok {
			out = append(out, Candidate{Bridge: b, Bus: d.Bus, Addr: d.Address})
		}
		return ok
	})
	// This API is really poor as there can be multiple devices opened and you
	// don't know how many failed. If the user needs root access,
	// LIBUSB_ERROR_ACCESS (-3) is returned.
	if err != nil {
		log.Printf("probe: OpenDevices: %v", err)
	}
	for _, d := range devs {
		s, err := d.SerialNumber()
		if err != nil {
			log.Printf("probe: %s: SerialNumber: %v", d, err)
		}
		for i := range out {
			if out[i].Bus == d.Desc.Bus && out[i].Addr == d.Desc.Address {
				out[i].Serial = s
			}
		}
		d.Close()
	}
	return out, nil
}
