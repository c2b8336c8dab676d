// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

import (
	"errors"
	"strconv"
)

// Transfer describes a block transfer.
//
// Two Transfer with the same fields are equal and can be compared with ==.
type Transfer struct {
	Modifier AddressModifier
	Width    Width
	Base     uint32
	Length   uint32
}

func (t Transfer) String() string {
	return t.Modifier.String() + "/" + t.Width.String() + "@0x" + strconv.FormatUint(uint64(t.Base), 16) + "+" + strconv.FormatUint(uint64(t.Length), 10)
}

// Validate returns an error if the description cannot be a valid transfer.
func (t Transfer) Validate() error {
	if !t.Width.Valid() {
		return errors.New("bus: invalid transfer width " + t.Width.String())
	}
	if t.Length == 0 {
		return errors.New("bus: empty transfer")
	}
	if t.Length%uint32(t.Width) != 0 {
		return errors.New("bus: transfer length " + strconv.FormatUint(uint64(t.Length), 10) + " is not a multiple of " + t.Width.String())
	}
	if t.Base%uint32(t.Width) != 0 {
		return errors.New("bus: transfer base is not aligned on " + t.Width.String())
	}
	if uint64(t.Base)+uint64(t.Length) > 1<<32 {
		return errors.New("bus: transfer wraps around the address space")
	}
	return nil
}
