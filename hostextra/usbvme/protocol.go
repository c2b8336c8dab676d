// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package usbvme

import (
	"encoding/binary"
	"strconv"

	"periph.io/x/crate/conn/bus"
)

// Request:
//
//  op(1) am(1) width(1) flags(1) addr(4) count(4) payload
//
// Response:
//
//  status(1) pad(3) count(4) payload
//
// Multi-byte fields are big endian. count is the length in bytes of the data
// moved, except for opDelay where it is in µs and opList where it is the
// length of the sub-requests.
const (
	opRead       = 1
	opWrite      = 2
	opBlockRead  = 3
	opBlockWrite = 4
	opList       = 5
	opDelay      = 6
)

const (
	reqHeaderSize  = 12
	respHeaderSize = 8
	// maxPayload is the largest payload in either direction.
	maxPayload = 0x10000
)

func appendRequest(b []byte, op byte, am bus.AddressModifier, w bus.Width, addr, count uint32, payload []byte) []byte {
	var h [reqHeaderSize]byte
	h[0] = op
	h[1] = byte(am)
	h[2] = byte(w)
	binary.BigEndian.PutUint32(h[4:], addr)
	binary.BigEndian.PutUint32(h[8:], count)
	b = append(b, h[:]...)
	return append(b, payload...)
}

func encode(v uint32, w bus.Width) []byte {
	switch w {
	case bus.D8:
		return []byte{byte(v)}
	case bus.D16:
		return []byte{byte(v >> 8), byte(v)}
	default:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		return b[:]
	}
}

func decode(b []byte, w bus.Width) uint32 {
	switch w {
	case bus.D8:
		return uint32(b[0])
	case bus.D16:
		return uint32(binary.BigEndian.Uint16(b))
	default:
		return binary.BigEndian.Uint32(b)
	}
}

// Bridge status codes.
const (
	statusOK          = 0
	statusBusError    = 1
	statusTimeout     = 2
	statusModifier    = 3
	statusWidth       = 4
	statusAlignment   = 5
	statusBadRequest  = 6
	statusArbitration = 7
	statusOverflow    = 8
)

// toErr converts a bridge status to an error.
func toErr(s string, e int) error {
	msg := ""
	switch e {
	case statusOK:
		return nil
	case statusBusError:
		msg = "bus error"
	case statusTimeout:
		msg = "no acknowledgement from the module"
	case statusModifier:
		msg = "address modifier not supported by the bridge"
	case statusWidth:
		msg = "data width not supported by the bridge"
	case statusAlignment:
		msg = "misaligned access"
	case statusBadRequest:
		msg = "malformed request"
	case statusArbitration:
		msg = "bus arbitration timeout; is another master hogging the bus?"
	case statusOverflow:
		msg = "request too large"
	default:
		msg = "unknown status " + strconv.Itoa(e)
	}
	return &bus.Error{Op: "usbvme: " + s, Code: e, Reason: msg}
}
