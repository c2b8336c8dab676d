// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostextra

import (
	// Make sure the crate backends are registered.
	_ "periph.io/x/crate/hostextra/devmem"
	_ "periph.io/x/crate/hostextra/null"
	_ "periph.io/x/crate/hostextra/sim"
	_ "periph.io/x/crate/hostextra/usbvme"
	"periph.io/x/periph"
	"periph.io/x/periph/host"
)

// Init calls host.Init(), which calls periph.Init() and returns it as-is.
//
// The difference with host.Init() and periph.Init() is that hostextra.Init()
// links in every crate backend, so their type tags are registered in
// busreg.Default() once it returns. A backend which failed to initialize is
// listed in State.Failed.
//
// Since host.Init() is used, all drivers in periph.io/x/periph/host are also
// automatically loaded.
func Init() (*periph.State, error) {
	return host.Init()
}
