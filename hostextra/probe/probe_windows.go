// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package probe

import (
	"github.com/StackExchange/wmi"
)

// pnpEntity represents a Win32_PnPEntity instance. It intentionally leaves a
// lot of members out.
type pnpEntity struct {
	DeviceID string
	Name     string
}

func scan() ([]Candidate, error) {
	// https://docs.microsoft.com/windows/win32/cimwin32prov/win32-pnpentity
	var dst []pnpEntity
	if err := wmi.Query(`SELECT DeviceID, Name FROM Win32_PnPEntity WHERE DeviceID LIKE 'USB\\VID_%'`, &dst); err != nil {
		return nil, err
	}
	var out []Candidate
	for _, e := range dst {
		vid, pid, serial, ok := parsePnPDeviceID(e.DeviceID)
		if !ok {
			continue
		}
		if b, ok := lookup(vid, pid); ok {
			out = append(out, Candidate{Bridge: b, Serial: serial})
		}
	}
	return out, nil
}
