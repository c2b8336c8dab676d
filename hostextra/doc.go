// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hostextra loads the crate backends.
//
// Each subpackage is a backend registering its type tag when the periph
// drivers are initialized:
//
//  null    placeholder accepting any configuration
//  sim     crate simulated in process memory
//  devmem  bridge exposing the crate as physical memory windows
//  usbvme  USB bridge; requires cgo
//
// The probe subpackage lists the adapters attached to the host.
package hostextra
