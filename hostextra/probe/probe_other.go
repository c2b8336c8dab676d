// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !cgo && !windows

package probe

import "errors"

func scan() ([]Candidate, error) {
	return nil, errors.New("probe: scanning USB requires cgo; see https://periph.io/x/crate#hdr-Configuration")
}
