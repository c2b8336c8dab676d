// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usbvme implements a bus interface for USB to VME bridges speaking
// a request/response protocol on bulk endpoint 1.
//
// The bridge has no mapping capability; every access is a USB transaction.
// It has a list processor which executes a whole list in one transaction,
// which is much faster than a sequence of single shot accesses.
//
// Description line:
//
//  usbvme vid=<vendor id> pid=<product id> [serial=<serial number>]
//
// For example:
//
//  usbvme vid=0x16dc pid=0x000b serial=VM0123
//
// Configuration
//
// The package uses libusb through github.com/google/gousb so it requires cgo.
// On linux, the user needs write access to the device node, usually through
// an udev rule:
//
//  SUBSYSTEM=="usb", ATTR{idVendor}=="16dc", MODE="0666"
//
// On macOS, install libusb with "brew install libusb".
package usbvme
