// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"errors"
	"strconv"
)

var (
	// ErrNotSupported is returned by an Interface that cannot create the
	// requested capability.
	ErrNotSupported = errors.New("bus: capability not supported by this interface")
	// ErrInvalidInterfaceType is returned when no interface can be built from
	// a description, either because the type tag is unknown or because the
	// creator rejected the configuration.
	ErrInvalidInterfaceType = errors.New("bus: invalid interface type")
	// ErrLockHeld is returned when the bus lock is acquired twice.
	ErrLockHeld = errors.New("bus: lock already held by this process")
	// ErrNotLocked is returned when the bus lock is released without being
	// held.
	ErrNotLocked = errors.New("bus: lock not held")
)

// RangeError is returned when an offset or index exceeds a known bound.
type RangeError struct {
	What  string
	Bound uint64
	Value uint64
}

func (r *RangeError) Error() string {
	return "bus: " + r.What + " " + strconv.FormatUint(r.Value, 10) + " out of range, must be lower than " + strconv.FormatUint(r.Bound, 10)
}

// Error is a failure reported by a backend native driver.
//
// Code is the backend specific numeric reason.
type Error struct {
	Op     string
	Code   int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Reason
	if e.Code != 0 {
		s += " (" + strconv.Itoa(e.Code) + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PartialTransferError is returned when a block transfer moved fewer bytes
// than requested.
type PartialTransferError struct {
	Desc Transfer
	Want int
	Got  int
}

func (p *PartialTransferError) Error() string {
	return "bus: partial transfer of " + strconv.Itoa(p.Got) + " bytes out of " + strconv.Itoa(p.Want)
}

// DescriptionError is returned when a description line cannot be turned into
// an Interface.
//
// Line is 1 based and is 0 when the description didn't come from a file.
type DescriptionError struct {
	Line int
	Text string
	Err  error
}

func (d *DescriptionError) Error() string {
	s := "bus: "
	if d.Line != 0 {
		s += "line " + strconv.Itoa(d.Line) + ": "
	}
	s += strconv.Quote(d.Text)
	if d.Err != nil {
		s += ": " + d.Err.Error()
	}
	return s
}

func (d *DescriptionError) Unwrap() error {
	return d.Err
}

// CheckTransfer returns a *PartialTransferError if n is lower than the
// transfer length.
func CheckTransfer(t DmaTransfer, n int, err error) error {
	if err != nil {
		return err
	}
	if d := t.Desc(); n < int(d.Length) {
		return &PartialTransferError{Desc: d, Want: int(d.Length), Got: n}
	}
	return nil
}

// checkOffset verifies that an access of w bytes at offset fits in length.
func checkOffset(offset uint32, w Width, length uint32) error {
	if o := uint64(offset) * uint64(w); o >= uint64(length) || o+uint64(w) > uint64(length) {
		return &RangeError{What: "offset", Bound: uint64(length) / uint64(w), Value: uint64(offset)}
	}
	return nil
}
