// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bus

// Base is a do-nothing partial Interface meant to be embedded.
//
// Backends only override what they support. OnLock and OnUnlock are no-ops,
// the capability queries return false and the create methods return
// ErrNotSupported.
type Base struct {
	// Type is returned by DeviceType().
	Type string
}

// String implements conn.Resource.
func (b *Base) String() string {
	return b.Type
}

// Halt implements conn.Resource.
func (b *Base) Halt() error {
	return nil
}

// Close implements Interface.
func (b *Base) Close() error {
	return nil
}

// CanMap implements Interface.
func (b *Base) CanMap() bool {
	return false
}

// HasListProcessor implements Interface.
func (b *Base) HasListProcessor() bool {
	return false
}

// HasBlockTransfer implements Interface.
func (b *Base) HasBlockTransfer() bool {
	return false
}

// OnLock implements Interface.
func (b *Base) OnLock() error {
	return nil
}

// OnUnlock implements Interface.
func (b *Base) OnUnlock() error {
	return nil
}

// DeviceType implements Interface.
func (b *Base) DeviceType() string {
	return b.Type
}

// DeviceHandle implements Interface.
func (b *Base) DeviceHandle() interface{} {
	return nil
}

// CreateAddressRange implements Interface.
func (b *Base) CreateAddressRange(am AddressModifier, base, length uint32) (AddressRange, error) {
	return nil, ErrNotSupported
}

// CreatePio implements Interface.
func (b *Base) CreatePio() (Pio, error) {
	return nil, ErrNotSupported
}

// CreateList implements Interface.
func (b *Base) CreateList() (List, error) {
	return nil, ErrNotSupported
}

// CreateDmaTransfer implements Interface.
func (b *Base) CreateDmaTransfer(am AddressModifier, w Width, base, length uint32) (DmaTransfer, error) {
	return nil, ErrNotSupported
}

var _ Interface = &Base{}
