// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !cgo

package usbvme

import "errors"

const disabled = true

func openUSB(opts *Opts) (conn, error) {
	return nil, errors.New("usbvme: can't be used without cgo")
}
