// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bus defines the capabilities exposed by a bus adapter, a "crate"
// controller.
//
// An adapter is represented by an Interface. It can be asked whether it
// supports a capability and then asked to create it:
//
// - AddressRange is a bounded window onto bus address space, typically
//   mapped in the process address space.
//
// - Pio is single shot, unmapped access. Every adapter should support it.
//
// - DmaTransfer is a described block transfer.
//
// - List is a command list, executed in one go by adapters which have a list
//   processor. Use ListFor() to get a software fallback otherwise.
//
// A capability that an adapter cannot provide is reported with
// ErrNotSupported.
//
// Concrete adapters live in periph.io/x/crate/hostextra and register
// themselves in periph.io/x/crate/conn/bus/busreg.
package bus
