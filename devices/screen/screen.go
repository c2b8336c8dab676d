// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen renders crate memory as a heat map on the terminal (stdout)
// using ANSI color codes.
//
// Each byte is one block, colored from black (0x00) through blue, red and
// yellow to white (0xFF). Useful to spot at a glance which part of a module's
// memory changed between two dumps.
package screen // import "periph.io/x/crate/devices/screen"

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/periph/conn"
)

// Dev is a memory heat map that outputs to the console.
type Dev struct {
	w    io.Writer
	cols int
	buf  bytes.Buffer
}

// New returns a Dev that displays at the console with cols bytes per row.
func New(cols int) *Dev {
	return NewWriter(colorable.NewColorableStdout(), cols)
}

// NewWriter returns a Dev that writes to w with cols bytes per row.
func NewWriter(w io.Writer, cols int) *Dev {
	if cols <= 0 {
		cols = 64
	}
	return &Dev{w: w, cols: cols}
}

func (d *Dev) String() string {
	return "Screen"
}

// Halt implements conn.Resource.
//
// It resets the colors so the terminal is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}

// Write renders b without address labels.
func (d *Dev) Write(b []byte) (int, error) {
	return len(b), d.render(nil, b)
}

// Dump renders b as memory starting at bus address base, each row prefixed
// with its address.
func (d *Dev) Dump(base uint32, b []byte) error {
	if uint64(base)+uint64(len(b)) > 1<<32 {
		return errors.New("screen: dump wraps around the address space")
	}
	return d.render(&base, b)
}

// Heat returns the color of the value v.
func Heat(v byte) color.NRGBA {
	x := int(v)
	switch {
	case x < 64:
		// Black to blue.
		return color.NRGBA{0, 0, byte(x * 4), 255}
	case x < 128:
		// Blue to red.
		x = (x - 64) * 4
		return color.NRGBA{byte(x), 0, byte(255 - x), 255}
	case x < 192:
		// Red to yellow.
		return color.NRGBA{255, byte((x - 128) * 4), 0, 255}
	default:
		// Yellow to white.
		return color.NRGBA{255, 255, byte((x - 192) * 4), 255}
	}
}

func (d *Dev) render(base *uint32, b []byte) error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	for i := 0; i < len(b); i += d.cols {
		if base != nil {
			_, _ = fmt.Fprintf(&d.buf, "\033[0m%08x ", *base+uint32(i))
		}
		end := i + d.cols
		if end > len(b) {
			end = len(b)
		}
		for _, v := range b[i:end] {
			_, _ = io.WriteString(&d.buf, ansi256.Default.Block(Heat(v)))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ conn.Resource = &Dev{}
var _ io.Writer = &Dev{}
