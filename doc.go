// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package crate is for documentation only. Explains how to setup cgo, needed
// by the USB bridges.
//
// The crates are described in a text file, one bus interface per line:
//
//  # A24 memory module simulated in process memory.
//  sim mem=0x39:0x100000:0x10000
//  # Bridge on the USB bus.
//  usbvme vid=0x16dc pid=0x000b
//
// Run crate-probe to find the description line of the bridges attached.
//
// Debian
//
// This includes Raspbian and Ubuntu.
//
// You need to install pkg-config to enable cgo, and libusb:
//
//  sudo apt install pkg-config libusb-1.0-0-dev
//
// MacOS
//
// You can install pkg-config and libusb via Homebrew (https://brew.sh):
//
//  brew install pkgconfig libusb
//
// and follow instructions. For example it may ask to run 'xcode-select
// -install'.
//
// Windows
//
// USB bridges are listed through WMI. Opening them requires cgo and libusb.
package crate
