// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !unix

package subsystem

import "errors"

func systemIPC() ipc {
	return unsupportedIPC{}
}

type unsupportedIPC struct{}

func (unsupportedIPC) lookup(key uint32) (semaphore, error) {
	return nil, errors.New("subsystem: bus lock is not implemented on this OS")
}

func (unsupportedIPC) createExclusive(key uint32) (semaphore, error) {
	return nil, errors.New("subsystem: bus lock is not implemented on this OS")
}
