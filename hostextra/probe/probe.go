// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package probe lists the crate adapters attached to the host.
//
// USB bridges are found through libusb (github.com/google/gousb), which
// requires cgo, except on Windows where the plug and play entities are
// queried through WMI.
package probe

import (
	"sort"
	"strconv"
	"strings"

	"periph.io/x/crate/hostextra/usbvme"
)

// Bridge is a known adapter model.
type Bridge struct {
	VID  uint16
	PID  uint16
	Name string
}

// Bridges are the adapter models recognized.
var Bridges = []Bridge{
	{0x16dc, 0x000b, "Wiener VM-USB"},
	{0x21e1, 0x0000, "CAEN V1718"},
	{0x21e1, 0x0001, "CAEN V3718"},
}

// Candidate is an attached adapter.
type Candidate struct {
	Bridge
	Serial string
	// Bus and Addr locate the device on the host. They are 0 when unknown.
	Bus  int
	Addr int
}

func (c *Candidate) String() string {
	s := c.Name + " (" + hexID(c.VID) + ":" + hexID(c.PID)
	if c.Bus != 0 || c.Addr != 0 {
		s += " bus " + strconv.Itoa(c.Bus) + " addr " + strconv.Itoa(c.Addr)
	}
	return s + ")"
}

// Description returns the description line opening this adapter.
func (c *Candidate) Description() string {
	s := usbvme.Type + " vid=" + hexID(c.VID) + " pid=" + hexID(c.PID)
	if c.Serial != "" {
		s += " serial=" + c.Serial
	}
	return s
}

// All returns the adapters attached, sorted by location.
func All() ([]Candidate, error) {
	out, err := scan()
	sort.Sort(candidates(out))
	return out, err
}

//

func lookup(vid, pid uint16) (Bridge, bool) {
	for _, b := range Bridges {
		if b.VID == vid && b.PID == pid {
			return b, true
		}
	}
	return Bridge{}, false
}

func hexID(i uint16) string {
	s := strconv.FormatUint(uint64(i), 16)
	return "0x" + strings.Repeat("0", 4-len(s)) + s
}

// parsePnPDeviceID decodes a plug and play device ID like
// `USB\VID_16DC&PID_000B\VM0123`.
func parsePnPDeviceID(id string) (uint16, uint16, string, bool) {
	parts := strings.Split(id, `\`)
	if len(parts) < 2 || !strings.EqualFold(parts[0], "USB") {
		return 0, 0, "", false
	}
	var vid, pid uint64
	var okv, okp bool
	for _, f := range strings.Split(parts[1], "&") {
		var err error
		switch {
		case strings.HasPrefix(strings.ToUpper(f), "VID_"):
			vid, err = strconv.ParseUint(f[4:], 16, 16)
			okv = err == nil
		case strings.HasPrefix(strings.ToUpper(f), "PID_"):
			pid, err = strconv.ParseUint(f[4:], 16, 16)
			okp = err == nil
		}
	}
	if !okv || !okp {
		return 0, 0, "", false
	}
	serial := ""
	// Windows generates an instance ID containing '&' when the device has no
	// serial number.
	if len(parts) > 2 && !strings.Contains(parts[2], "&") {
		serial = parts[2]
	}
	return uint16(vid), uint16(pid), serial, true
}

type candidates []Candidate

func (c candidates) Len() int      { return len(c) }
func (c candidates) Swap(i, j int) { c[i], c[j] = c[j], c[i] }
func (c candidates) Less(i, j int) bool {
	if c[i].Bus != c[j].Bus {
		return c[i].Bus < c[j].Bus
	}
	if c[i].Addr != c[j].Addr {
		return c[i].Addr < c[j].Addr
	}
	return c[i].Serial < c[j].Serial
}
